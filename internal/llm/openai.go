package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// ProviderOpenAI is the name of the OpenAI provider.
const ProviderOpenAI = "openai"

func init() {
	mustRegister(Spec{
		Name:         ProviderOpenAI,
		DefaultModel: "gpt-5.2",
		EnvKey:       "OPENAI_API_KEY",
		Description:  "OpenAI Chat Completions API",
		New:          func(cfg ClientConfig) Provider { return NewOpenAIProvider(cfg) },
	})
}

// OpenAIProvider translates through an OpenAI compatible chat completions
// endpoint.
type OpenAIProvider struct {
	name   string
	cfg    ClientConfig
	client *openai.Client

	// legacyMaxTokens sends max_tokens instead of max_completion_tokens for
	// servers that only know the older field.
	legacyMaxTokens bool
	keyOptional     bool
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(cfg ClientConfig) *OpenAIProvider {
	return &OpenAIProvider{
		name:   ProviderOpenAI,
		cfg:    cfg,
		client: openai.NewClientWithConfig(openAIConfig(cfg)),
	}
}

func openAIConfig(cfg ClientConfig) openai.ClientConfig {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		oc.BaseURL = cfg.Endpoint
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return oc
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Validate implements Provider.
func (p *OpenAIProvider) Validate() error {
	if p.cfg.APIKey == "" && !p.keyOptional {
		return fmt.Errorf("%w: %s API key is not set", ErrNotConfigured, p.name)
	}
	if p.cfg.Model == "" {
		return fmt.Errorf("%w: %s model is not set", ErrNotConfigured, p.name)
	}
	return nil
}

// TranslateBatch implements Provider.
func (p *OpenAIProvider) TranslateBatch(ctx context.Context, items []Item, opts Options) (*BatchResult, error) {
	return runBatch(items, opts, func(system, user string) (string, TokenUsage, string, error) {
		req := openai.ChatCompletionRequest{
			Model: p.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: float32(opts.Temperature),
		}
		if p.legacyMaxTokens {
			req.MaxTokens = opts.MaxTokens
		} else {
			req.MaxCompletionTokens = opts.MaxTokens
		}

		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", TokenUsage{}, "", fmt.Errorf("%s API error: %w", p.name, err)
		}
		usage := TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
		if len(resp.Choices) == 0 {
			return "", usage, resp.Model, ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, usage, resp.Model, nil
	})
}

// runBatch encodes the request, calls send and parses the reply.
func runBatch(items []Item, opts Options, send func(system, user string) (string, TokenUsage, string, error)) (*BatchResult, error) {
	payload, err := UserPayload(items)
	if err != nil {
		return nil, err
	}
	content, usage, model, err := send(SystemPrompt(opts), payload)
	if err != nil {
		return nil, err
	}
	translations, err := ParseResponse(content)
	if err != nil {
		return nil, err
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &BatchResult{Translations: translations, Usage: usage, Model: model}, nil
}
