// Package conversation implements the turn-generation engine and the
// context-window manager that keeps prompts inside the model budget.
package conversation

import (
	"github.com/mselway/courtier/internal/llm"
)

// Message is one turn in the live conversation history. Insertion order
// is conversational order.
type Message struct {
	Role    llm.Role `json:"role"`
	Name    string   `json:"name,omitempty"`
	Content string   `json:"content"`
}

// Summary is one persisted end-of-session summary. Date is the in-world
// date of the session, e.g. "1066.9.15".
type Summary struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}
