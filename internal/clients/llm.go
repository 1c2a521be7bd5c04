// Package clients holds the thin adapters for the third-party services the
// backend talks to: LLM completion, weather and transactional email. Each is
// a narrow interface over an HTTP API; no domain logic lives here.
package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ChatMessage is one message of a chat-completions request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionClient calls a Mistral-style chat-completions API.
type CompletionClient struct {
	client *resty.Client
	model  string
}

func NewCompletionClient(baseURL, apiKey, model string) *CompletionClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetTimeout(60 * time.Second)

	return &CompletionClient{client: c, model: model}
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation and returns the assistant reply text.
func (c *CompletionClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("completion: no messages")
	}

	var out completionResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&completionRequest{Model: c.model, Messages: messages, Temperature: 0.7}).
		SetResult(&out).
		Post("/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("completion status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("completion: empty response")
	}
	return out.Choices[0].Message.Content, nil
}
