package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ProviderAnthropic is the name of the Anthropic provider.
const ProviderAnthropic = "anthropic"

const anthropicDefaultMaxTokens = 8192

func init() {
	mustRegister(Spec{
		Name:         ProviderAnthropic,
		DefaultModel: "claude-sonnet-4-20250514",
		EnvKey:       "ANTHROPIC_API_KEY",
		Description:  "Anthropic Messages API",
		New:          func(cfg ClientConfig) Provider { return NewAnthropicProvider(cfg) },
	})
}

// AnthropicProvider translates through the Anthropic Messages API.
type AnthropicProvider struct {
	cfg    ClientConfig
	client anthropic.Client
}

// NewAnthropicProvider creates an Anthropic provider. The SDK's own retries
// are disabled; callers retry whole batches.
func NewAnthropicProvider(cfg ClientConfig) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &AnthropicProvider{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
	}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

// Validate implements Provider.
func (p *AnthropicProvider) Validate() error {
	if p.cfg.APIKey == "" {
		return fmt.Errorf("%w: anthropic API key is not set", ErrNotConfigured)
	}
	if p.cfg.Model == "" {
		return fmt.Errorf("%w: anthropic model is not set", ErrNotConfigured)
	}
	return nil
}

// TranslateBatch implements Provider.
func (p *AnthropicProvider) TranslateBatch(ctx context.Context, items []Item, opts Options) (*BatchResult, error) {
	return runBatch(items, opts, func(system, user string) (string, TokenUsage, string, error) {
		maxTokens := opts.MaxTokens
		if maxTokens <= 0 {
			maxTokens = anthropicDefaultMaxTokens
		}

		msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(p.cfg.Model),
			MaxTokens:   int64(maxTokens),
			System:      []anthropic.TextBlockParam{{Text: system}},
			Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
			Temperature: anthropic.Float(opts.Temperature),
		})
		if err != nil {
			return "", TokenUsage{}, "", fmt.Errorf("anthropic API error: %w", err)
		}

		var sb strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		usage := TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		}
		return sb.String(), usage, string(msg.Model), nil
	})
}
