package llm

import (
	"context"
	"fmt"

	"github.com/reagent-dev/reagent/internal/config"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Messages     []*Message `json:"messages"`
	SystemPrompt string     `json:"system_prompt,omitempty"`
	Temperature  float64    `json:"temperature"`
	MaxTokens    int        `json:"max_tokens,omitempty"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string `json:"content"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      *Usage `json:"usage,omitempty"`
}

// Usage carries token accounting when the provider reports it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Client is the interface for LLM clients.
type Client interface {
	// CompleteWithRequest sends a completion request and returns the response.
	CompleteWithRequest(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	// Complete is a simplified version for a single prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// GetModelName returns the model name.
	GetModelName() string
}

// NewClient builds a client for the configured provider, wrapped with
// transport retries.
func NewClient(cfg *config.LLMConfig, retries int) (Client, error) {
	var base Client
	var err error
	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.DefaultModel, cfg.TimeoutSeconds)
	case "ollama":
		base, err = NewOllamaClient(cfg.BaseURL, cfg.DefaultModel, cfg.TimeoutSeconds)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewRetryClient(base, retries), nil
}
