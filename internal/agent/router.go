package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mselway/courtier/internal/game"
)

// Router decides, per participant, whether turn generation is delegated
// to a persistent external agent or handled locally by the conversation
// engine.
type Router struct {
	enabled  bool
	client   *Client
	mappings *Mappings
	batcher  *Batcher
	logger   *slog.Logger
}

// NewRouter creates a router. When enabled is false every participant is
// handled locally.
func NewRouter(enabled bool, client *Client, mappings *Mappings, batcher *Batcher, logger *slog.Logger) *Router {
	return &Router{
		enabled:  enabled,
		client:   client,
		mappings: mappings,
		batcher:  batcher,
		logger:   logger,
	}
}

// Delegated reports whether a participant's generation is owned by an
// external agent.
func (r *Router) Delegated(participantID int32) bool {
	if !r.enabled || r.mappings == nil {
		return false
	}
	_, ok := r.mappings.Get(participantID)
	return ok
}

// EnsureAgent provisions an external agent for a character if none is
// mapped yet, persisting the mapping.
func (r *Router) EnsureAgent(ctx context.Context, c game.Character) (string, error) {
	if m, ok := r.mappings.Get(c.ID); ok {
		return m.AgentID, nil
	}

	agentID, err := r.client.CreateAgent(ctx, c.FullName, c.Sheet, "The player character of this game.")
	if err != nil {
		return "", fmt.Errorf("ensure agent for %s: %w", c.FullName, err)
	}
	if err := r.mappings.Put(c.ID, agentID, c.FullName); err != nil {
		return "", err
	}
	r.logger.Info("provisioned external agent", "participant", c.ID, "agent", agentID)
	return agentID, nil
}

// Generate delegates one turn to the participant's external agent. The
// agent's queued events are flushed synchronously first so its memory is
// current before dialogue begins.
func (r *Router) Generate(ctx context.Context, participantID int32, userTurn string) (string, error) {
	m, ok := r.mappings.Get(participantID)
	if !ok {
		return "", fmt.Errorf("participant %d has no external agent", participantID)
	}

	if err := r.batcher.Flush(ctx, m.AgentID); err != nil {
		// Memory staleness is tolerable; the queue is retained for retry.
		r.logger.Warn("pre-turn event flush failed", "agent", m.AgentID, "error", err)
	}

	reply, err := r.client.SendMessage(ctx, m.AgentID, userTurn)
	if err != nil {
		return "", fmt.Errorf("agent generate: %w", err)
	}
	return reply, nil
}

// FlushPending synchronously flushes every agent's queued events. Run
// before a conversation starts so memories are current.
func (r *Router) FlushPending(ctx context.Context) error {
	if !r.enabled || r.batcher == nil {
		return nil
	}
	return r.batcher.FlushAll(ctx)
}

// QueueEvent routes a game event into the owning agent's batch queue.
// Events for unmapped participants are dropped.
func (r *Router) QueueEvent(ev game.Event) {
	if !r.enabled {
		return
	}
	m, ok := r.mappings.Get(ev.ParticipantID)
	if !ok {
		return
	}
	r.batcher.Queue(m.AgentID, ev)
}
