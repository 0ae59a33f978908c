package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/genai"
)

// ProviderGemini is the name of the Google Gemini provider.
const ProviderGemini = "gemini"

func init() {
	mustRegister(Spec{
		Name:         ProviderGemini,
		DefaultModel: "gemini-2.5-flash",
		EnvKey:       "GOOGLE_API_KEY",
		Description:  "Google Gemini API",
		New:          func(cfg ClientConfig) Provider { return NewGeminiProvider(cfg) },
	})
}

// GeminiProvider translates through the Gemini API.
type GeminiProvider struct {
	cfg ClientConfig

	once   sync.Once
	client *genai.Client
	err    error
}

// NewGeminiProvider creates a Gemini provider. The client is created on the
// first request.
func NewGeminiProvider(cfg ClientConfig) *GeminiProvider {
	return &GeminiProvider{cfg: cfg}
}

// Name implements Provider.
func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

// Validate implements Provider.
func (p *GeminiProvider) Validate() error {
	if p.cfg.APIKey == "" {
		return fmt.Errorf("%w: gemini API key is not set", ErrNotConfigured)
	}
	if p.cfg.Model == "" {
		return fmt.Errorf("%w: gemini model is not set", ErrNotConfigured)
	}
	return nil
}

func (p *GeminiProvider) connect(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		cc := &genai.ClientConfig{
			APIKey:  p.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if p.cfg.Timeout > 0 {
			cc.HTTPClient = &http.Client{Timeout: p.cfg.Timeout}
		}
		if p.cfg.Endpoint != "" {
			cc.HTTPOptions.BaseURL = p.cfg.Endpoint
		}
		p.client, p.err = genai.NewClient(ctx, cc)
	})
	return p.client, p.err
}

// TranslateBatch implements Provider.
func (p *GeminiProvider) TranslateBatch(ctx context.Context, items []Item, opts Options) (*BatchResult, error) {
	client, err := p.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return runBatch(items, opts, func(system, user string) (string, TokenUsage, string, error) {
		cfg := &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       genai.Ptr(float32(opts.Temperature)),
			ResponseMIMEType:  "application/json",
		}
		if opts.MaxTokens > 0 {
			cfg.MaxOutputTokens = int32(opts.MaxTokens)
		}

		resp, err := client.Models.GenerateContent(ctx, p.cfg.Model, genai.Text(user), cfg)
		if err != nil {
			return "", TokenUsage{}, "", fmt.Errorf("gemini API error: %w", err)
		}

		var usage TokenUsage
		if md := resp.UsageMetadata; md != nil {
			usage = TokenUsage{
				InputTokens:  int(md.PromptTokenCount),
				OutputTokens: int(md.CandidatesTokenCount),
				TotalTokens:  int(md.TotalTokenCount),
			}
		}
		model := resp.ModelVersion
		if model == "" {
			model = p.cfg.Model
		}
		return resp.Text(), usage, model, nil
	})
}
