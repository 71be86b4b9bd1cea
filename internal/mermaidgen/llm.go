package mermaidgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/archviz/diagramsvc/internal/model"
)

// LLMConfig is the subset of internal/config.Config the LLM path needs.
type LLMConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
}

// llmClient sends a chat-completion style request to an OpenAI-compatible
// endpoint. Grounded on the teacher's core/llm_adapters.go, which wraps an
// *http.Client with a 30s default timeout around its model provider
// adapters; this client follows the same shape for the one call this
// service needs.
type llmClient struct {
	cfg    LLMConfig
	client *http.Client
}

// NewLLMClient returns nil when no endpoint is configured, so callers can
// pass the result straight to mermaidgen.NewGenerator and skip the LLM path
// entirely without a nil-config branch at every call site.
func NewLLMClient(cfg LLMConfig) *llmClient {
	if cfg.Endpoint == "" {
		return nil
	}
	return &llmClient{cfg: cfg, client: &http.Client{Timeout: 30 * time.Second}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete builds the prompt for req (spec.md §4.6.1: diagram_type, the raw
// content, extracted entities/relations, syntax rules, three worked
// examples) and returns the candidate DSL text, trimmed of any surrounding
// Markdown code fence the model may have added.
func (c *llmClient) complete(ctx context.Context, req model.DiagramRequest) (string, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return "", err
	}
	return c.post(ctx, prompt)
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) > 1 {
			lines = lines[1:]
		}
		s = strings.Join(lines, "\n")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func (c *llmClient) post(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm endpoint returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm response had no choices")
	}
	return stripFence(parsed.Choices[0].Message.Content), nil
}
