// Package llm provides a provider-agnostic completion client with token
// accounting, context-limit knowledge and retry policy.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mselway/courtier/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Role identifies who authored a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn in a chat-shaped request.
type ChatMessage struct {
	Role    Role
	Name    string
	Content string
}

// CompletionRequest describes one completion call. When OnChunk is set the
// call streams and relays each text fragment as it arrives; either way the
// caller receives the final aggregated text from Complete.
type CompletionRequest struct {
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	StopWords   []string
	OnChunk     func(chunk string)
}

// ConnectionStatus is the result of a connection probe.
type ConnectionStatus struct {
	OK                bool
	ContextLimitKnown bool
	Err               error
}

// Client is the uniform completion contract the engine talks to.
type Client interface {
	// Complete performs one completion call and returns the normalized text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// TokensFromChat returns the approximate token cost of a message list.
	TokensFromChat(msgs []ChatMessage) int
	// TokensFromMessage returns the approximate token cost of one message.
	TokensFromMessage(msg ChatMessage) int
	// IsChat reports whether the provider receives role/content arrays;
	// false means flat-text instruct serialization is used.
	IsChat() bool
	// ContextLimit returns the model's context limit in tokens, 0 if unknown.
	ContextLimit() int
	// TestConnection probes the provider with a minimal call.
	TestConnection(ctx context.Context) ConnectionStatus
}

// ProviderClient implements Client over a langchaingo model.
type ProviderClient struct {
	model        llms.Model
	modelName    string
	instruct     bool
	inputSeq     string
	outputSeq    string
	stopSeqs     []string
	contextLimit int
	tokenizer    *Tokenizer
	logger       *slog.Logger
}

var _ Client = (*ProviderClient)(nil)

// New creates a completion client for the configured provider. The context
// is only used for provider construction (AWS credential resolution).
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*ProviderClient, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, cfgErr := awsconfig.LoadDefaultConfig(ctx)
		if cfgErr != nil {
			return nil, fmt.Errorf("load aws config: %w", cfgErr)
		}
		runtime := bedrockruntime.NewFromConfig(awsCfg)
		model, err = bedrock.New(
			bedrock.WithClient(runtime),
			bedrock.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	instruct := cfg.InstructMode
	if instruct && (cfg.Provider == config.ProviderAnthropic || cfg.Provider == config.ProviderBedrock) {
		logger.Warn("instruct mode not supported for provider, falling back to chat",
			"provider", cfg.Provider)
		instruct = false
	}

	limit := lookupContextLimit(cfg.Model)
	if cfg.ContextLimitOverride > 0 {
		limit = cfg.ContextLimitOverride
	}
	if limit == 0 {
		logger.Warn("context limit unknown for model, resummarization disabled until configured",
			"model", cfg.Model)
	}

	return &ProviderClient{
		model:        model,
		modelName:    cfg.Model,
		instruct:     instruct,
		inputSeq:     cfg.InputSequence,
		outputSeq:    cfg.OutputSequence,
		stopSeqs:     cfg.StopSequences,
		contextLimit: limit,
		tokenizer:    NewTokenizer(cfg.Model),
		logger:       logger,
	}, nil
}

// IsChat reports whether requests are sent as role/content arrays.
func (c *ProviderClient) IsChat() bool {
	return !c.instruct
}

// ContextLimit returns the model's context limit, 0 when unknown.
func (c *ProviderClient) ContextLimit() int {
	return c.contextLimit
}

// ModelName returns the configured model identifier.
func (c *ProviderClient) ModelName() string {
	return c.modelName
}

// TestConnection issues a one-token probe completion.
func (c *ProviderClient) TestConnection(ctx context.Context) ConnectionStatus {
	_, err := c.completeOnce(ctx, CompletionRequest{
		Messages:  []ChatMessage{{Role: RoleUser, Content: "Hi"}},
		MaxTokens: 1,
	})
	return ConnectionStatus{
		OK:                err == nil,
		ContextLimitKnown: c.contextLimit > 0,
		Err:               err,
	}
}
