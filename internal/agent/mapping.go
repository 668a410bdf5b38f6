package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Mapping links a game participant to its service-side agent. One entry
// per participant per save.
type Mapping struct {
	ParticipantID int32     `json:"participantId"`
	AgentID       string    `json:"agentId"`
	DisplayName   string    `json:"displayName"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// Mappings is the per-save agent mapping document. It is read at session
// start and rewritten wholesale on change.
type Mappings struct {
	path    string
	entries map[int32]Mapping
}

// LoadMappings reads the mapping document for a save, creating an empty
// one when the file does not exist.
func LoadMappings(userDataDir, saveID string) (*Mappings, error) {
	m := &Mappings{
		path:    filepath.Join(userDataDir, "agents", saveID+".json"),
		entries: make(map[int32]Mapping),
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read agent mappings: %w", err)
	}

	var doc struct {
		Mappings []Mapping `json:"mappings"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse agent mappings: %w", err)
	}
	for _, e := range doc.Mappings {
		m.entries[e.ParticipantID] = e
	}
	return m, nil
}

// Get returns the mapping for a participant.
func (m *Mappings) Get(participantID int32) (Mapping, bool) {
	e, ok := m.entries[participantID]
	return e, ok
}

// Put inserts or refreshes a mapping and rewrites the document.
func (m *Mappings) Put(participantID int32, agentID, displayName string) error {
	now := time.Now().UTC()
	entry, ok := m.entries[participantID]
	if !ok {
		entry = Mapping{
			ParticipantID: participantID,
			AgentID:       agentID,
			DisplayName:   displayName,
			CreatedAt:     now,
		}
	} else {
		entry.AgentID = agentID
		entry.DisplayName = displayName
	}
	entry.LastUpdated = now
	m.entries[participantID] = entry
	return m.save()
}

// Len returns the number of mapped participants.
func (m *Mappings) Len() int {
	return len(m.entries)
}

func (m *Mappings) save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("create agents dir: %w", err)
	}

	doc := struct {
		Mappings []Mapping `json:"mappings"`
	}{Mappings: make([]Mapping, 0, len(m.entries))}
	for _, e := range m.entries {
		doc.Mappings = append(doc.Mappings, e)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal agent mappings: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("write agent mappings: %w", err)
	}
	return nil
}
