package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tmc/langchaingo/llms"
)

const (
	// maxRetries bounds retries of transient failures (rate limits,
	// empty completions). All other failures propagate immediately.
	maxRetries = 3

	// retryDelay is the fixed pause between retry attempts.
	retryDelay = 2 * time.Second
)

// Complete performs one completion call with retry on transient failures.
// The returned text is the full completion, whether or not streaming was
// requested via req.OnChunk.
func (c *ProviderClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var result string

	operation := func() error {
		text, err := c.completeOnce(ctx, req)
		if err != nil {
			if isTransient(err) {
				c.logger.Warn("transient completion failure, retrying", "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		if strings.TrimSpace(text) == "" {
			c.logger.Warn("empty completion, retrying")
			return ErrEmptyCompletion
		}
		result = text
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), maxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	return result, nil
}

// completeOnce performs a single attempt in either chat or instruct shape.
func (c *ProviderClient) completeOnce(ctx context.Context, req CompletionRequest) (string, error) {
	opts := c.callOptions(req)

	if c.instruct {
		prompt := c.serializeInstruct(req.Messages)
		return llms.GenerateFromSinglePrompt(ctx, c.model, prompt, opts...)
	}

	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		content = append(content, llms.TextParts(chatMessageType(m.Role), m.Content))
	}

	resp, err := c.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Content, nil
}

func (c *ProviderClient) callOptions(req CompletionRequest) []llms.CallOption {
	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	opts = append(opts, llms.WithTemperature(req.Temperature))

	stop := append([]string{}, c.stopSeqs...)
	stop = append(stop, req.StopWords...)
	if c.instruct && c.inputSeq != "" {
		// The input delimiter doubles as a stop sequence so an instruct
		// model does not continue the conversation on its own.
		stop = append(stop, strings.TrimSpace(c.inputSeq))
	}
	if len(stop) > 0 {
		opts = append(opts, llms.WithStopWords(stop))
	}

	if req.OnChunk != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			req.OnChunk(string(chunk))
			return nil
		}))
	}
	return opts
}

// serializeInstruct flattens a chat array into instruct-style text using
// the configured input/output delimiters. System content leads the prompt;
// the output delimiter is left open for the model to complete.
func (c *ProviderClient) serializeInstruct(msgs []ChatMessage) string {
	var sb strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			sb.WriteString(m.Content)
			sb.WriteString("\n\n")
		case RoleUser:
			sb.WriteString(c.inputSeq)
			sb.WriteString(m.Content)
			sb.WriteString("\n")
		case RoleAssistant:
			sb.WriteString(c.outputSeq)
			sb.WriteString(m.Content)
			sb.WriteString("\n")
		}
	}
	sb.WriteString(c.outputSeq)
	return sb.String()
}

func chatMessageType(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
