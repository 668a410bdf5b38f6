package game

import "time"

// Event is one discrete external game event destined for an agent's
// long-term memory. Events live only inside a batcher queue until
// flushed; they are not otherwise persisted.
type Event struct {
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	Description   string    `json:"description"`
	ParticipantID int32     `json:"participantId"`
}
