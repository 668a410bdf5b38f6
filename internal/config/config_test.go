package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if cfg.PercentOfContextToSummarize != 30 {
		t.Errorf("percent_of_context_to_summarize = %d", cfg.PercentOfContextToSummarize)
	}
	if cfg.EventBatchSize != 5 || cfg.EventBatchHardCap != 20 {
		t.Errorf("batch defaults = %d/%d", cfg.EventBatchSize, cfg.EventBatchHardCap)
	}
	if !cfg.SelfTalk || !cfg.Stream {
		t.Errorf("self_talk/stream defaults = %v/%v", cfg.SelfTalk, cfg.Stream)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"provider": "ollama",
		"model": "llama3.1:8b",
		"percent_of_context_to_summarize": 40,
		"disabled_actions": ["becomeLovers"],
		"action_approval_levels": {"aiPaysGoldToPlayer": "auto"}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != ProviderOllama || cfg.Model != "llama3.1:8b" {
		t.Errorf("provider/model = %q/%q", cfg.Provider, cfg.Model)
	}
	if cfg.PercentOfContextToSummarize != 40 {
		t.Errorf("percent = %d", cfg.PercentOfContextToSummarize)
	}
	if !cfg.ActionDisabled("becomeLovers") {
		t.Error("disabled action not honored")
	}
	if cfg.ApprovalFor("aiPaysGoldToPlayer") != ApprovalAuto {
		t.Errorf("approval = %q", cfg.ApprovalFor("aiPaysGoldToPlayer"))
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	// api_key, agent_service_token, instruct_mode and disabled_actions
	// have no default, so they only apply when explicitly bound.
	t.Setenv("COURTIER_API_KEY", "sk-live-1234")
	t.Setenv("COURTIER_AGENT_SERVICE_TOKEN", "letta-secret")
	t.Setenv("COURTIER_INSTRUCT_MODE", "true")
	t.Setenv("COURTIER_DISABLED_ACTIONS", "becomeLovers,becomeRivals")
	t.Setenv("COURTIER_MODEL", "gpt-4o")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "sk-live-1234" {
		t.Errorf("api_key = %q, want env override", cfg.APIKey)
	}
	if cfg.AgentServiceToken != "letta-secret" {
		t.Errorf("agent_service_token = %q, want env override", cfg.AgentServiceToken)
	}
	if !cfg.InstructMode {
		t.Error("instruct_mode env override not applied")
	}
	if !cfg.ActionDisabled("becomelovers") || !cfg.ActionDisabled("becomeRivals") {
		t.Errorf("disabled_actions env override not applied: %v", cfg.DisabledActions)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("model = %q, want env override of default", cfg.Model)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"api_key": "sk-from-file"}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COURTIER_API_KEY", "sk-from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "sk-from-env" {
		t.Errorf("api_key = %q, want env to win over file", cfg.APIKey)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Load() on missing explicit file succeeded")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Provider:                    ProviderOpenAI,
		PercentOfContextToSummarize: 30,
		EventBatchSize:              5,
		EventBatchHardCap:           20,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad provider", func(c *Config) { c.Provider = "gemini" }, true},
		{"percent zero", func(c *Config) { c.PercentOfContextToSummarize = 0 }, true},
		{"percent over 100", func(c *Config) { c.PercentOfContextToSummarize = 150 }, true},
		{"percent boundary", func(c *Config) { c.PercentOfContextToSummarize = 100 }, false},
		{"batch size zero", func(c *Config) { c.EventBatchSize = 0 }, true},
		{"hard cap below batch size", func(c *Config) { c.EventBatchHardCap = 3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() succeeded, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestApprovalForDefaults(t *testing.T) {
	cfg := Config{ActionApprovalLevels: map[string]ApprovalLevel{
		"emotionHappy": ApprovalAuto,
		"becomeRivals": ApprovalBlocked,
	}}

	if got := cfg.ApprovalFor("emotionHappy"); got != ApprovalAuto {
		t.Errorf("ApprovalFor(emotionHappy) = %q", got)
	}
	if got := cfg.ApprovalFor("becomeRivals"); got != ApprovalBlocked {
		t.Errorf("ApprovalFor(becomeRivals) = %q", got)
	}
	if got := cfg.ApprovalFor("anythingElse"); got != ApprovalRequired {
		t.Errorf("ApprovalFor(unlisted) = %q, want approval", got)
	}
}

func TestActionDisabledCaseInsensitive(t *testing.T) {
	cfg := Config{DisabledActions: []string{"BecomeLovers"}}
	if !cfg.ActionDisabled("becomelovers") {
		t.Error("case-insensitive match failed")
	}
	if cfg.ActionDisabled("becomeRivals") {
		t.Error("unrelated action reported disabled")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
