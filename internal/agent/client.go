// Package agent integrates external persistent-memory agents: the service
// client, per-save agent mappings, routing, event batching and narrative
// transformation.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a persistent-memory agent service over HTTP JSON. The
// service owns a participant's dialogue generation end to end, bypassing
// local context-window management.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates an agent service client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// CreateAgent provisions a new agent with the given display name and
// persona text, returning the service-side agent id.
func (c *Client) CreateAgent(ctx context.Context, name, persona, human string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "/v1/agents", map[string]any{
		"name":    name,
		"persona": persona,
		"human":   human,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create agent: service returned no id")
	}
	return resp.ID, nil
}

// SendMessage delivers a user turn to the agent and returns its reply.
func (c *Client) SendMessage(ctx context.Context, agentID, content string) (string, error) {
	var resp struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	err := c.post(ctx, "/v1/agents/"+agentID+"/messages", map[string]any{
		"role":    "user",
		"content": content,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	// The service may interleave tool/reasoning messages; the reply is
	// the last assistant-authored one.
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		if resp.Messages[i].Role == "assistant" && resp.Messages[i].Content != "" {
			return resp.Messages[i].Content, nil
		}
	}
	return "", fmt.Errorf("send message: no assistant reply in response")
}

// InsertArchivalMemory writes one entry into the agent's long-term store.
func (c *Client) InsertArchivalMemory(ctx context.Context, agentID, content string) error {
	if err := c.post(ctx, "/v1/agents/"+agentID+"/archival-memory", map[string]any{
		"text": content,
	}, nil); err != nil {
		return fmt.Errorf("insert archival memory: %w", err)
	}
	return nil
}

// Health probes the service.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent service health: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
