package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mselway/courtier/internal/config"
	"github.com/mselway/courtier/internal/game"
	"github.com/mselway/courtier/internal/metrics"
)

// Batcher maintains per-agent FIFO queues of game events with three
// independent flush triggers: batch size, hard cap, and an idle timeout
// debounce (reset on enqueue, cancelled on flush). A flush either empties
// a queue or leaves it untouched; flush errors preserve the queue for the
// next trigger.
type Batcher struct {
	mu sync.Mutex

	client      *Client
	transformer *Transformer
	metrics     *metrics.Collector
	logger      *slog.Logger

	batchSize int
	hardCap   int
	idle      time.Duration

	queues map[string]*eventQueue
}

// queuedEvent tracks whether the event's archival insert already
// succeeded, so a flush retry after a partial failure does not write a
// duplicate into the agent's long-term memory.
type queuedEvent struct {
	ev       game.Event
	archived bool
}

type eventQueue struct {
	events []queuedEvent
	timer  *time.Timer
}

// NewBatcher creates an event batcher.
func NewBatcher(cfg config.Config, client *Client, transformer *Transformer, collector *metrics.Collector, logger *slog.Logger) *Batcher {
	return &Batcher{
		client:      client,
		transformer: transformer,
		metrics:     collector,
		logger:      logger,
		batchSize:   cfg.EventBatchSize,
		hardCap:     cfg.EventBatchHardCap,
		idle:        time.Duration(cfg.EventBatchTimeoutMs) * time.Millisecond,
		queues:      make(map[string]*eventQueue),
	}
}

// Queue enqueues an event for an agent, flushing synchronously when the
// batch size or hard cap is reached and otherwise resetting the agent's
// idle timer.
func (b *Batcher) Queue(agentID string, ev game.Event) {
	b.mu.Lock()
	q := b.queue(agentID)
	q.events = append(q.events, queuedEvent{ev: ev})
	n := len(q.events)

	if n >= b.hardCap || n >= b.batchSize {
		b.mu.Unlock()
		if err := b.Flush(context.Background(), agentID); err != nil {
			b.logger.Error("triggered flush failed, queue retained", "agent", agentID, "error", err)
		}
		return
	}

	// Debounce: a new enqueue supersedes the previous timer.
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(b.idle, func() {
		if err := b.Flush(context.Background(), agentID); err != nil {
			b.logger.Error("idle flush failed, queue retained", "agent", agentID, "error", err)
		}
	})
	b.mu.Unlock()
}

// Len returns the current queue length for an agent.
func (b *Batcher) Len(agentID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[agentID]; ok {
		return len(q.events)
	}
	return 0
}

// Flush synchronously drains an agent's queue into its long-term memory
// and sends one synthetic recent-events turn. Called explicitly before a
// conversation starts, and by the count/timer triggers. On error the
// queue is preserved for retry; archival inserts that already succeeded
// are marked and not repeated by the retry.
func (b *Batcher) Flush(ctx context.Context, agentID string) error {
	start := time.Now()

	b.mu.Lock()
	q := b.queue(agentID)
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	entries := make([]queuedEvent, len(q.events))
	copy(entries, q.events)
	b.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	narratives := make([]string, 0, len(entries))
	for i, e := range entries {
		entry := b.transformer.Narrative(ctx, e.ev)
		if emotion, ok := b.transformer.Emotion(ctx, e.ev); ok {
			entry = fmt.Sprintf("%s (feeling: %s)", entry, emotion)
		}
		narratives = append(narratives, entry)

		if e.archived {
			continue
		}
		if err := b.client.InsertArchivalMemory(ctx, agentID, entry); err != nil {
			return fmt.Errorf("flush agent %s: %w", agentID, err)
		}
		b.mu.Lock()
		// Only Flush shrinks the queue, so the flushed prefix keeps its
		// indices while we are in flight.
		if i < len(q.events) {
			q.events[i].archived = true
		}
		b.mu.Unlock()
	}

	recap := "[Recent events]\n" + strings.Join(narratives, "\n")
	if _, err := b.client.SendMessage(ctx, agentID, recap); err != nil {
		return fmt.Errorf("flush agent %s: recap turn: %w", agentID, err)
	}

	b.mu.Lock()
	q = b.queue(agentID)
	// Drop exactly the events we flushed; anything enqueued while the
	// flush was in flight stays for the next trigger.
	q.events = q.events[min(len(entries), len(q.events)):]
	b.mu.Unlock()

	b.metrics.RecordTiming(metrics.OpEventFlush, time.Since(start))
	b.logger.Info("flushed events to agent", "agent", agentID, "count", len(entries))
	return nil
}

// FlushAll flushes every queue, used at session start.
func (b *Batcher) FlushAll(ctx context.Context) error {
	b.mu.Lock()
	ids := make([]string, 0, len(b.queues))
	for id := range b.queues {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := b.Flush(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stop cancels all idle timers.
func (b *Batcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, q := range b.queues {
		if q.timer != nil {
			q.timer.Stop()
			q.timer = nil
		}
	}
}

// queue returns the queue for an agent, creating it if needed. Callers
// must hold b.mu.
func (b *Batcher) queue(agentID string) *eventQueue {
	q, ok := b.queues[agentID]
	if !ok {
		q = &eventQueue{}
		b.queues[agentID] = q
	}
	return q
}
