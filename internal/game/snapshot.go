package game

import (
	"encoding/json"
	"fmt"
	"os"
)

type snapshotCharacter struct {
	ID              int32   `json:"id"`
	FullName        string  `json:"fullName"`
	ShortName       string  `json:"shortName"`
	Sheet           string  `json:"sheet"`
	OpinionOfPlayer int     `json:"opinionOfPlayer"`
	Gold            int     `json:"gold"`
	IsLandedRuler   bool    `json:"isLandedRuler"`
	IsAtWarWith     []int32 `json:"isAtWarWith"`
	Prisoner        bool    `json:"prisoner"`
}

type snapshot struct {
	Date        string              `json:"date"`
	Scene       string              `json:"scene"`
	InitiatorID int32               `json:"initiatorId"`
	Characters  []snapshotCharacter `json:"characters"`
}

// LoadSnapshot reads a JSON game-state snapshot produced by the external
// log parser and builds the session's Data.
func LoadSnapshot(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if len(snap.Characters) == 0 {
		return nil, fmt.Errorf("snapshot %s: no characters", path)
	}

	characters := make([]Character, len(snap.Characters))
	for i, sc := range snap.Characters {
		characters[i] = Character{
			ID:              sc.ID,
			FullName:        sc.FullName,
			ShortName:       sc.ShortName,
			Sheet:           sc.Sheet,
			OpinionOfPlayer: sc.OpinionOfPlayer,
			Gold:            sc.Gold,
			IsLandedRuler:   sc.IsLandedRuler,
			IsAtWarWith:     sc.IsAtWarWith,
			Prisoner:        sc.Prisoner,
		}
		if characters[i].ShortName == "" {
			characters[i].ShortName = sc.FullName
		}
	}

	data := &Data{
		Date:        snap.Date,
		Scene:       snap.Scene,
		InitiatorID: snap.InitiatorID,
		Roster:      NewRoster(characters),
	}
	if _, ok := data.Initiator(); !ok {
		return nil, fmt.Errorf("snapshot %s: initiator %d not among characters", path, snap.InitiatorID)
	}
	return data, nil
}
