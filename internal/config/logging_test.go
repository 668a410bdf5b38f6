package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupLoggerWithWriters_FanOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("session started", "participant", int32(2))

	if !strings.Contains(stderr.String(), "session started") {
		t.Errorf("stderr output missing message: %q", stderr.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v (%q)", err, file.String())
	}
	if entry["msg"] != "session started" {
		t.Errorf("json msg = %v", entry["msg"])
	}
	if entry["participant"] != float64(2) {
		t.Errorf("json participant = %v", entry["participant"])
	}
}

func TestSetupLoggerWithWriters_LevelFilter(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Debug("noisy detail")
	logger.Info("routine info")

	if stderr.Len() != 0 || file.Len() != 0 {
		t.Errorf("below-level records were written: stderr=%q file=%q", stderr.String(), file.String())
	}

	logger.Warn("something odd")
	if !strings.Contains(stderr.String(), "something odd") {
		t.Errorf("warn record missing from stderr: %q", stderr.String())
	}
}
