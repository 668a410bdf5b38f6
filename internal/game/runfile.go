package game

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EffectSink is the boundary that turns approved actions into game-visible
// commands. Implementations append line-oriented effect commands to a
// well-known file the game process polls.
type EffectSink interface {
	Write(content string) error
	Append(line string) error
	Clear() error
}

// RunFileManager implements EffectSink over a single run file.
type RunFileManager struct {
	mu         sync.Mutex
	path       string
	clearDelay time.Duration
	logger     *slog.Logger
	clearTimer *time.Timer
}

// NewRunFileManager creates a run-file effect sink. The parent directory
// is created on first write.
func NewRunFileManager(path string, clearDelay time.Duration, logger *slog.Logger) *RunFileManager {
	return &RunFileManager{
		path:       path,
		clearDelay: clearDelay,
		logger:     logger,
	}
}

// Write replaces the run file content.
func (m *RunFileManager) Write(content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	if err := os.WriteFile(m.path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write run file: %w", err)
	}
	return nil
}

// Append adds one effect command line to the run file.
func (m *RunFileManager) Append(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open run file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append run file: %w", err)
	}
	return nil
}

// Clear empties the run file.
func (m *RunFileManager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.WriteFile(m.path, nil, 0644); err != nil {
		return fmt.Errorf("clear run file: %w", err)
	}
	return nil
}

// SignalSessionEnd writes the session-end trigger line and schedules a
// clear after the configured delay so the game has time to consume it.
func (m *RunFileManager) SignalSessionEnd() error {
	if err := m.Append("trigger_event = courtier_conversation_end"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearTimer != nil {
		m.clearTimer.Stop()
	}
	m.clearTimer = time.AfterFunc(m.clearDelay, func() {
		if err := m.Clear(); err != nil {
			m.logger.Error("deferred run file clear failed", "error", err)
		}
	})
	return nil
}
