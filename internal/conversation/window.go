package conversation

import (
	"context"
	"log/slog"

	"github.com/mselway/courtier/internal/llm"
)

// Summarizer folds removed history into the rolling summary. Implemented
// over the summarization completion client; faked in tests.
type Summarizer interface {
	Summarize(ctx context.Context, removed []Message, current string) (string, error)
}

// Window tracks the live message history plus the rolling summary and
// keeps their combined token cost under the model's context limit. It is
// owned by exactly one Engine and is not safe for concurrent use.
type Window struct {
	client     llm.Client
	summarizer Summarizer
	percent    int
	logger     *slog.Logger

	messages       []Message
	rollingSummary string
}

// NewWindow creates a context window. percent is the share of the context
// limit to evict per resummarization pass (percentOfContextToSummarize).
func NewWindow(client llm.Client, summarizer Summarizer, percent int, logger *slog.Logger) *Window {
	return &Window{
		client:     client,
		summarizer: summarizer,
		percent:    percent,
		logger:     logger,
	}
}

// Push appends a message to the live history.
func (w *Window) Push(m Message) {
	w.messages = append(w.messages, m)
}

// Messages returns the live history in conversational order.
func (w *Window) Messages() []Message {
	return w.messages
}

// Len returns the number of live messages.
func (w *Window) Len() int {
	return len(w.messages)
}

// RollingSummary returns the current rolling summary, empty if none.
func (w *Window) RollingSummary() string {
	return w.rollingSummary
}

// EnsureFits resummarizes if the candidate prompt would exceed the
// model's context limit. It removes the oldest messages until their
// accumulated token cost reaches percent% of the context limit (or the
// history is empty), then folds them into the rolling summary. A failed
// summarization call leaves the rolling summary unchanged; the removed
// messages are lost either way — an accepted lossy degradation.
func (w *Window) EnsureFits(ctx context.Context, promptTokens int) {
	limit := w.client.ContextLimit()
	if limit <= 0 || promptTokens <= limit {
		return
	}

	target := limit * w.percent / 100
	var removed []Message
	accumulated := 0
	for accumulated < target && len(w.messages) > 0 {
		m := w.messages[0]
		w.messages = w.messages[1:]
		removed = append(removed, m)
		accumulated += w.client.TokensFromMessage(llm.ChatMessage{Role: m.Role, Name: m.Name, Content: m.Content})
	}

	// History already empty: nothing to fold, leave the summary alone.
	if len(removed) == 0 {
		return
	}

	w.logger.Info("resummarizing history",
		"removed_messages", len(removed),
		"removed_tokens", accumulated,
		"prompt_tokens", promptTokens,
		"context_limit", limit,
	)

	newSummary, err := w.summarizer.Summarize(ctx, removed, w.rollingSummary)
	if err != nil {
		w.logger.Error("resummarization failed, rolling summary unchanged", "error", err)
		return
	}
	w.rollingSummary = newSummary
}
