package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/mselway/courtier/internal/llm"
)

// fakeClient is a scripted llm.Client for engine and window tests. Each
// Complete call pops the next response; tokens are a fixed cost per
// message.
type fakeClient struct {
	limit     int
	perMsg    int
	responses []string
	err       error

	calls    int
	requests []llm.CompletionRequest
}

func (f *fakeClient) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("fakeClient: no scripted response for call %d", f.calls)
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeClient) TokensFromChat(msgs []llm.ChatMessage) int {
	return len(msgs) * f.perMsg
}

func (f *fakeClient) TokensFromMessage(llm.ChatMessage) int { return f.perMsg }
func (f *fakeClient) IsChat() bool                          { return true }
func (f *fakeClient) ContextLimit() int                     { return f.limit }

func (f *fakeClient) TestConnection(context.Context) llm.ConnectionStatus {
	return llm.ConnectionStatus{OK: true, ContextLimitKnown: f.limit > 0}
}

// fakeSummarizer records Summarize calls and returns a fixed summary.
type fakeSummarizer struct {
	summary string
	err     error

	calls   int
	removed [][]Message
	current []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, removed []Message, current string) (string, error) {
	f.calls++
	f.removed = append(f.removed, removed)
	f.current = append(f.current, current)
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func pushN(w *Window, n int) {
	for i := 0; i < n; i++ {
		w.Push(Message{Role: llm.RoleUser, Name: "Speaker", Content: fmt.Sprintf("line %d", i)})
	}
}

func TestWindowEnsureFits_NoOpWhenFitting(t *testing.T) {
	client := &fakeClient{limit: 1000, perMsg: 10}
	sum := &fakeSummarizer{summary: "unused"}
	w := NewWindow(client, sum, 30, testLogger())
	pushN(w, 5)

	w.EnsureFits(context.Background(), 500)

	if sum.calls != 0 {
		t.Errorf("summarizer called %d times, want 0", sum.calls)
	}
	if w.Len() != 5 {
		t.Errorf("history shrank to %d messages, want 5", w.Len())
	}
}

func TestWindowEnsureFits_NoOpWhenLimitUnknown(t *testing.T) {
	client := &fakeClient{limit: 0, perMsg: 10}
	sum := &fakeSummarizer{}
	w := NewWindow(client, sum, 30, testLogger())
	pushN(w, 5)

	w.EnsureFits(context.Background(), 1_000_000)

	if sum.calls != 0 || w.Len() != 5 {
		t.Errorf("resummarization ran with unknown limit: calls=%d len=%d", sum.calls, w.Len())
	}
}

func TestWindowEnsureFits_RemovesOldestUntilTarget(t *testing.T) {
	// limit 100, 30% -> target 30 tokens -> 3 messages at 10 tokens each.
	client := &fakeClient{limit: 100, perMsg: 10}
	sum := &fakeSummarizer{summary: "they argued about the harvest"}
	w := NewWindow(client, sum, 30, testLogger())
	pushN(w, 10)

	w.EnsureFits(context.Background(), 150)

	if w.Len() != 7 {
		t.Fatalf("history has %d messages, want 7", w.Len())
	}
	if got := w.Messages()[0].Content; got != "line 3" {
		t.Errorf("oldest surviving message = %q, want %q", got, "line 3")
	}
	if sum.calls != 1 {
		t.Fatalf("summarizer called %d times, want 1", sum.calls)
	}
	if len(sum.removed[0]) != 3 {
		t.Errorf("summarizer got %d removed messages, want 3", len(sum.removed[0]))
	}
	if w.RollingSummary() != "they argued about the harvest" {
		t.Errorf("rolling summary = %q", w.RollingSummary())
	}
}

func TestWindowEnsureFits_FullEvictionAtHundredPercent(t *testing.T) {
	client := &fakeClient{limit: 100, perMsg: 10}
	sum := &fakeSummarizer{summary: "everything so far"}
	w := NewWindow(client, sum, 100, testLogger())
	pushN(w, 4) // 40 tokens, below the 100-token target

	w.EnsureFits(context.Background(), 150)

	if w.Len() != 0 {
		t.Errorf("history has %d messages, want 0 (full eviction)", w.Len())
	}
	if w.RollingSummary() != "everything so far" {
		t.Errorf("rolling summary = %q", w.RollingSummary())
	}
}

func TestWindowEnsureFits_EmptyHistorySkipsSummarizer(t *testing.T) {
	client := &fakeClient{limit: 100, perMsg: 10}
	sum := &fakeSummarizer{}
	w := NewWindow(client, sum, 30, testLogger())

	w.EnsureFits(context.Background(), 150)

	if sum.calls != 0 {
		t.Errorf("summarizer called %d times on empty history, want 0", sum.calls)
	}
}

func TestWindowEnsureFits_SummarizerFailureKeepsSummary(t *testing.T) {
	client := &fakeClient{limit: 100, perMsg: 10}
	sum := &fakeSummarizer{summary: "first pass"}
	w := NewWindow(client, sum, 30, testLogger())
	pushN(w, 10)

	w.EnsureFits(context.Background(), 150)
	if w.RollingSummary() != "first pass" {
		t.Fatalf("rolling summary = %q, want %q", w.RollingSummary(), "first pass")
	}

	sum.err = errors.New("model overloaded")
	pushN(w, 10)
	w.EnsureFits(context.Background(), 150)

	if w.RollingSummary() != "first pass" {
		t.Errorf("failed summarization changed summary to %q", w.RollingSummary())
	}
	// The removed messages are gone regardless.
	if w.Len() != 14 {
		t.Errorf("history has %d messages, want 14", w.Len())
	}
}

func TestWindowSummarizerReceivesCurrentSummary(t *testing.T) {
	client := &fakeClient{limit: 100, perMsg: 10}
	sum := &fakeSummarizer{summary: "rolled up"}
	w := NewWindow(client, sum, 30, testLogger())
	pushN(w, 10)

	w.EnsureFits(context.Background(), 150)
	pushN(w, 10)
	w.EnsureFits(context.Background(), 150)

	if sum.calls != 2 {
		t.Fatalf("summarizer called %d times, want 2", sum.calls)
	}
	if sum.current[0] != "" {
		t.Errorf("first pass current summary = %q, want empty", sum.current[0])
	}
	if sum.current[1] != "rolled up" {
		t.Errorf("second pass current summary = %q, want %q", sum.current[1], "rolled up")
	}
}
