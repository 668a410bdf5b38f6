// Package feed connects to the game bridge's websocket event stream and
// routes decoded events into the agent batcher.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mselway/courtier/internal/game"
)

const (
	handshakeTimeout = 10 * time.Second
	initialBackoff   = time.Second
	maxBackoff       = 30 * time.Second
)

// Sink receives decoded game events. Satisfied by agent.Router.
type Sink interface {
	QueueEvent(ev game.Event)
}

// Feed consumes game events from a websocket endpoint. Events can arrive
// at any time relative to the conversation loop; the sink is responsible
// for its own synchronization.
type Feed struct {
	url    string
	sink   Sink
	logger *slog.Logger
}

// New creates a feed for the given websocket URL.
func New(url string, sink Sink, logger *slog.Logger) *Feed {
	return &Feed{url: url, sink: sink, logger: logger}
}

// Run connects and consumes events until the context is cancelled,
// reconnecting with exponential backoff on failure.
func (f *Feed) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		err := f.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("event feed disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (f *Feed) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	f.logger.Info("event feed connected", "url", f.url)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev game.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			f.logger.Warn("dropping malformed event", "error", err)
			continue
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		f.sink.QueueEvent(ev)
	}
}
