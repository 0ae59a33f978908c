// Package llm provides the translation service interface, the provider
// registry and the provider implementations.
package llm

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConfigured is returned by Validate when a provider lacks
	// credentials or a model.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrEmptyResponse is returned when the service answered without content.
	ErrEmptyResponse = errors.New("empty response")
	// ErrMalformedResponse is returned when the response is not the expected
	// JSON document.
	ErrMalformedResponse = errors.New("malformed response")
)

// Provider is the interface that all translation providers must implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string

	// TranslateBatch sends one batch of items and returns the translations
	// keyed by item ID. Items the service left out are absent from the map.
	TranslateBatch(ctx context.Context, items []Item, opts Options) (*BatchResult, error)

	// Validate checks if the provider is properly configured.
	Validate() error
}

// Item is one entry of a translation request.
type Item struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Options contains options for a translation request.
type Options struct {
	Language    string  `json:"language,omitempty"`    // target language tag (e.g., "zh-Hans")
	MaxTokens   int     `json:"max_tokens,omitempty"`  // maximum tokens for response
	Temperature float64 `json:"temperature,omitempty"` // creativity level (0.0 - 1.0)
	Prompt      string  `json:"prompt,omitempty"`      // custom localization guidance
	Glossary    string  `json:"glossary,omitempty"`    // term mappings appended to the prompt
}

// BatchResult contains the result of one batch request.
type BatchResult struct {
	Translations map[int]string `json:"translations"`
	Usage        TokenUsage     `json:"usage"`
	Model        string         `json:"model"`
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates u into t.
func (t *TokenUsage) Add(u TokenUsage) {
	t.InputTokens += u.InputTokens
	t.OutputTokens += u.OutputTokens
	t.TotalTokens += u.TotalTokens
}

// DefaultOptions returns the default translation options.
func DefaultOptions() Options {
	return Options{
		Language:    "zh-Hans",
		MaxTokens:   8192,
		Temperature: 0.1,
	}
}

// ClientConfig carries what a provider needs to reach its service.
type ClientConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}
