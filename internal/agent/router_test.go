package agent

import (
	"log/slog"
	"testing"
	"time"

	"github.com/mselway/courtier/internal/game"
	"github.com/mselway/courtier/internal/metrics"
)

func newTestRouter(t *testing.T, enabled bool, svc *fakeService) (*Router, *Batcher) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	mappings, err := LoadMappings(t.TempDir(), "test")
	if err != nil {
		t.Fatal(err)
	}
	if err := mappings.Put(2, "agent-2", "Aldric"); err != nil {
		t.Fatal(err)
	}

	client := NewClient(svc.srv.URL, "")
	transformer := NewTransformer(nil, false, logger)
	batcher := NewBatcher(batcherConfig(10, 20, 60_000), client, transformer, metrics.NewCollector(), logger)
	t.Cleanup(batcher.Stop)

	return NewRouter(enabled, client, mappings, batcher, logger), batcher
}

func TestRouterDelegated(t *testing.T) {
	svc := newFakeService(t)

	r, _ := newTestRouter(t, true, svc)
	if !r.Delegated(2) {
		t.Error("mapped participant not delegated")
	}
	if r.Delegated(7) {
		t.Error("unmapped participant delegated")
	}

	disabled, _ := newTestRouter(t, false, svc)
	if disabled.Delegated(2) {
		t.Error("delegation active while routing disabled")
	}
}

func TestRouterQueueEvent(t *testing.T) {
	svc := newFakeService(t)
	r, b := newTestRouter(t, true, svc)

	r.QueueEvent(game.Event{Type: "court", Description: "a feast", ParticipantID: 2, Timestamp: time.Now()})
	if got := b.Len("agent-2"); got != 1 {
		t.Errorf("queue length = %d, want 1", got)
	}

	// Unmapped participants are dropped.
	r.QueueEvent(game.Event{Type: "court", Description: "a feast", ParticipantID: 7, Timestamp: time.Now()})
	if got := b.Len("agent-2"); got != 1 {
		t.Errorf("unmapped event landed in agent-2's queue")
	}
}

func TestRouterQueueEventDisabled(t *testing.T) {
	svc := newFakeService(t)
	r, b := newTestRouter(t, false, svc)

	r.QueueEvent(game.Event{Type: "court", Description: "a feast", ParticipantID: 2})
	if got := b.Len("agent-2"); got != 0 {
		t.Errorf("disabled router queued an event")
	}
}
