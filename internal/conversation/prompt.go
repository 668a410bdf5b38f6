package conversation

import (
	"strings"

	"github.com/mselway/courtier/internal/game"
	"github.com/mselway/courtier/internal/llm"
)

// renderContent formats a message for the prompt, prefixing the speaker
// name so multi-party dialogue stays attributable.
func renderContent(m Message) string {
	if m.Name == "" || m.Role == llm.RoleSystem {
		return m.Content
	}
	return m.Name + ": " + m.Content
}

// expandPlaceholders substitutes the script placeholders for the current
// participant and scene.
func expandPlaceholders(text string, participant, initiator game.Character, data *game.Data) string {
	r := strings.NewReplacer(
		"{{char}}", participant.FullName,
		"{{player}}", initiator.FullName,
		"{{scene}}", data.Scene,
		"{{date}}", data.Date,
	)
	return r.Replace(text)
}

// buildPrompt assembles the full candidate prompt for one participant:
// system frame, few-shot examples, character description, rolling summary
// ahead of live history, and past summaries/memories at their configured
// insertion depths.
func (e *Engine) buildPrompt(participant game.Character) []Message {
	var system strings.Builder
	system.WriteString(expandPlaceholders(e.script.System, participant, e.initiator, e.data))
	if e.script.Description != "" {
		system.WriteString("\n\n")
		system.WriteString(expandPlaceholders(e.script.Description, participant, e.initiator, e.data))
	}
	if participant.Sheet != "" {
		system.WriteString("\n\n")
		system.WriteString(participant.Sheet)
	}

	msgs := []Message{{Role: llm.RoleSystem, Content: system.String()}}

	for _, ex := range e.script.Examples {
		role := llm.RoleUser
		if ex.Name == participant.FullName || ex.Name == participant.ShortName {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Name: ex.Name, Content: ex.Content})
	}

	// The rolling summary always precedes live history.
	if s := e.window.RollingSummary(); s != "" {
		msgs = append(msgs, Message{
			Role:    llm.RoleSystem,
			Content: "Earlier in this conversation: " + s,
		})
	}

	history := append([]Message{}, e.window.Messages()...)
	history = insertAtDepth(history, e.cfg.MemoriesInsertDepth, e.memoriesNote(participant))
	history = insertAtDepth(history, e.cfg.SummariesInsertDepth, e.summariesNote(participant))

	return append(msgs, history...)
}

// insertAtDepth places a note depth messages from the end of history,
// clamped to the start. Zero-content notes are dropped.
func insertAtDepth(history []Message, depth int, note Message) []Message {
	if note.Content == "" {
		return history
	}
	idx := len(history) - depth
	if idx < 0 {
		idx = 0
	}
	out := make([]Message, 0, len(history)+1)
	out = append(out, history[:idx]...)
	out = append(out, note)
	return append(out, history[idx:]...)
}

func (e *Engine) summariesNote(participant game.Character) Message {
	summaries := e.summariesFor(participant.ID)
	if len(summaries) == 0 {
		return Message{}
	}

	var sb strings.Builder
	sb.WriteString(participant.ShortName)
	sb.WriteString("'s memories of past conversations:\n")
	for i, s := range summaries {
		if i >= maxSummariesInPrompt {
			break
		}
		sb.WriteString("- (")
		sb.WriteString(s.Date)
		sb.WriteString(") ")
		sb.WriteString(s.Content)
		sb.WriteString("\n")
	}
	return Message{Role: llm.RoleSystem, Content: strings.TrimSpace(sb.String())}
}

func (e *Engine) memoriesNote(participant game.Character) Message {
	memories := e.memories[participant.ID]
	if len(memories) == 0 {
		return Message{}
	}
	return Message{
		Role:    llm.RoleSystem,
		Content: participant.ShortName + " remembers:\n- " + strings.Join(memories, "\n- "),
	}
}

// maxSummariesInPrompt bounds how many past-session summaries are
// surfaced; the list is newest-first so the most recent survive.
const maxSummariesInPrompt = 5

// toChatPrompt converts an assembled prompt into the client's shape with
// speaker names rendered into content.
func toChatPrompt(msgs []Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = llm.ChatMessage{Role: m.Role, Name: m.Name, Content: renderContent(m)}
	}
	return out
}
