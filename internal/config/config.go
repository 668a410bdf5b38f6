// Package config loads the engine configuration and sets up logging.
package config

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// Provider identifies a completion backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderBedrock   Provider = "bedrock"
)

// ApprovalLevel governs whether a requested action needs confirmation
// before it reaches the effect sink.
type ApprovalLevel string

const (
	ApprovalAuto     ApprovalLevel = "auto"
	ApprovalRequired ApprovalLevel = "approval"
	ApprovalBlocked  ApprovalLevel = "blocked"
)

// Config is an immutable snapshot of the engine configuration. Components
// receive it by value at construction time; changing configuration means
// rebuilding the dependent components via their UpdateConfig entry points.
type Config struct {
	// Completion provider
	Provider        Provider `mapstructure:"provider"`
	Model           string   `mapstructure:"model"`
	APIKey          string   `mapstructure:"api_key"`
	BaseURL         string   `mapstructure:"base_url"`
	OllamaHost      string   `mapstructure:"ollama_host"`
	Stream          bool     `mapstructure:"stream"`
	MaxOutputTokens int      `mapstructure:"max_output_tokens"`
	Temperature     float64  `mapstructure:"temperature"`

	// Instruct-style (flat-text) completion shape
	InstructMode   bool     `mapstructure:"instruct_mode"`
	InputSequence  string   `mapstructure:"input_sequence"`
	OutputSequence string   `mapstructure:"output_sequence"`
	StopSequences  []string `mapstructure:"stop_sequences"`

	// Separate model for summarization calls; empty means reuse Model.
	SummarizationModel string `mapstructure:"summarization_model"`

	// Context window management
	ContextLimitOverride        int `mapstructure:"context_limit_override"`
	PercentOfContextToSummarize int `mapstructure:"percent_of_context_to_summarize"`

	// Prompt assembly
	SummariesInsertDepth int  `mapstructure:"summaries_insert_depth"`
	MemoriesInsertDepth  int  `mapstructure:"memories_insert_depth"`
	SelfTalk             bool `mapstructure:"self_talk"`

	// Actions
	ActionsDir           string                   `mapstructure:"actions_dir"`
	DisabledActions      []string                 `mapstructure:"disabled_actions"`
	ActionApprovalLevels map[string]ApprovalLevel `mapstructure:"action_approval_levels"`

	// External persistent-memory agents
	AgentsEnabled     bool   `mapstructure:"agents_enabled"`
	AgentServiceURL   string `mapstructure:"agent_service_url"`
	AgentServiceToken string `mapstructure:"agent_service_token"`

	// Event batching
	EventBatchSize       int  `mapstructure:"event_batch_size"`
	EventBatchHardCap    int  `mapstructure:"event_batch_hard_cap"`
	EventBatchTimeoutMs  int  `mapstructure:"event_batch_timeout_ms"`
	FirstPersonNarrative bool `mapstructure:"first_person_narrative"`

	// Game-event feed (websocket bridge exposed by the game process)
	FeedURL string `mapstructure:"feed_url"`

	// Effect sink
	RunFilePath         string `mapstructure:"run_file_path"`
	RunFileClearDelayMs int    `mapstructure:"run_file_clear_delay_ms"`

	// Persistence root: summaries, histories and agent mappings live below it.
	UserDataDir string `mapstructure:"user_data_dir"`

	// Logging
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from an optional JSON file plus COURTIER_*
// environment overrides and returns an immutable snapshot.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("courtier")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// bindEnvKeys registers every config key with viper. AutomaticEnv only
// consults the environment for keys viper already knows from a default
// or the config file, which would drop overrides like COURTIER_API_KEY.
func bindEnvKeys(v *viper.Viper) {
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		if key := t.Field(i).Tag.Get("mapstructure"); key != "" {
			_ = v.BindEnv(key)
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", string(ProviderOpenAI))
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("base_url", "")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("stream", true)
	v.SetDefault("max_output_tokens", 512)
	v.SetDefault("temperature", 0.8)

	v.SetDefault("input_sequence", "### Instruction:\n")
	v.SetDefault("output_sequence", "### Response:\n")

	v.SetDefault("percent_of_context_to_summarize", 30)
	v.SetDefault("summaries_insert_depth", 2)
	v.SetDefault("memories_insert_depth", 2)
	v.SetDefault("self_talk", true)

	v.SetDefault("actions_dir", "userdata/actions")

	v.SetDefault("agents_enabled", false)
	v.SetDefault("agent_service_url", "http://localhost:8283")

	v.SetDefault("event_batch_size", 5)
	v.SetDefault("event_batch_hard_cap", 20)
	v.SetDefault("event_batch_timeout_ms", 30000)
	v.SetDefault("first_person_narrative", true)

	v.SetDefault("feed_url", "ws://localhost:8528/events")

	v.SetDefault("run_file_path", "userdata/run/effects.txt")
	v.SetDefault("run_file_clear_delay_ms", 500)

	v.SetDefault("user_data_dir", "userdata")

	v.SetDefault("log_file", "courtier.log")
	v.SetDefault("log_level", "INFO")
}

// Validate rejects configurations the engine cannot start with.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderBedrock:
	default:
		return fmt.Errorf("unsupported provider: %q", c.Provider)
	}
	if c.PercentOfContextToSummarize <= 0 || c.PercentOfContextToSummarize > 100 {
		return fmt.Errorf("percent_of_context_to_summarize must be in (0,100], got %d", c.PercentOfContextToSummarize)
	}
	if c.EventBatchSize <= 0 {
		return fmt.Errorf("event_batch_size must be positive, got %d", c.EventBatchSize)
	}
	if c.EventBatchHardCap < c.EventBatchSize {
		return fmt.Errorf("event_batch_hard_cap (%d) must be >= event_batch_size (%d)", c.EventBatchHardCap, c.EventBatchSize)
	}
	return nil
}

// ApprovalFor returns the configured approval level for an action
// signature, defaulting to approval-required.
func (c Config) ApprovalFor(signature string) ApprovalLevel {
	if lvl, ok := c.ActionApprovalLevels[signature]; ok {
		return lvl
	}
	return ApprovalRequired
}

// ActionDisabled reports whether an action signature is disabled.
func (c Config) ActionDisabled(signature string) bool {
	for _, name := range c.DisabledActions {
		if strings.EqualFold(name, signature) {
			return true
		}
	}
	return false
}

// ParseLogLevel maps a config string to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
