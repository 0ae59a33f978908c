// Package config manages application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// Environment variables that override the configuration file.
const (
	EnvProvider = "SLIDETRANSLATE_PROVIDER"
	EnvModel    = "SLIDETRANSLATE_MODEL"
	EnvLanguage = "SLIDETRANSLATE_LANG"
)

// Config represents the application configuration.
type Config struct {
	DefaultProvider string              `yaml:"default_provider" validate:"required"`
	Providers       map[string]Provider `yaml:"providers" validate:"dive"`
	Translation     TranslationConfig   `yaml:"translation"`
	Pricing         map[string]Price    `yaml:"pricing,omitempty"`
	Log             LogConfig           `yaml:"log"`
}

// Provider represents an LLM provider configuration.
type Provider struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens" validate:"gte=0"`
	Endpoint  string `yaml:"endpoint,omitempty" validate:"omitempty,url"` // for Ollama or custom endpoints
}

// TranslationConfig contains translation run options.
type TranslationConfig struct {
	TargetLanguage string        `yaml:"target_language" validate:"required,langtag"`
	BatchSize      int           `yaml:"batch_size" validate:"gte=1,lte=200"`
	Workers        int           `yaml:"workers" validate:"gte=1,lte=64"`
	Temperature    float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxRetries     int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	CacheSize      int           `yaml:"cache_size" validate:"gte=0"`
	OutputDir      string        `yaml:"output_dir" validate:"required"`
	OutputSuffix   string        `yaml:"output_suffix"`
	Prompt         string        `yaml:"prompt,omitempty"`   // localization guidance, {{targetLang}} is substituted
	Glossary       string        `yaml:"glossary,omitempty"` // path to a term mapping file
}

// Price is the USD price per one million tokens.
type Price struct {
	Input  decimal.Decimal `yaml:"input"`
	Output decimal.Decimal `yaml:"output"`
}

// LogConfig contains logging options.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir,omitempty"` // write a timestamped log file per run here
}

// DefaultPrice is used for models without a pricing entry.
var DefaultPrice = Price{
	Input:  decimal.RequireFromString("1.75"),
	Output: decimal.RequireFromString("14.00"),
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultProvider: "openai",
		Providers: map[string]Provider{
			"openai": {
				APIKey:    "${OPENAI_API_KEY}",
				Model:     "gpt-5.2",
				MaxTokens: 8192,
			},
			"anthropic": {
				APIKey:    "${ANTHROPIC_API_KEY}",
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 8192,
			},
			"gemini": {
				APIKey:    "${GOOGLE_API_KEY}",
				Model:     "gemini-2.5-flash",
				MaxTokens: 8192,
			},
			"ollama": {
				Endpoint:  "http://localhost:11434",
				Model:     "llama3.2",
				MaxTokens: 8192,
			},
		},
		Translation: TranslationConfig{
			TargetLanguage: "zh-Hans",
			BatchSize:      10,
			Workers:        10,
			Temperature:    0.1,
			Timeout:        120 * time.Second,
			MaxRetries:     2,
			CacheSize:      4096,
			OutputDir:      "output",
			OutputSuffix:   "cn",
		},
		Pricing: map[string]Price{
			"gpt-5.2": DefaultPrice,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// GetProvider returns the provider configuration by name.
func (c *Config) GetProvider(name string) (*Provider, bool) {
	p, ok := c.Providers[name]
	if !ok {
		return nil, false
	}
	return &p, true
}

// GetDefaultProvider returns the default provider configuration.
func (c *Config) GetDefaultProvider() (*Provider, bool) {
	return c.GetProvider(c.DefaultProvider)
}

// PriceFor returns the pricing entry for model, or DefaultPrice.
func (c *Config) PriceFor(model string) Price {
	if p, ok := c.Pricing[model]; ok {
		return p
	}
	return DefaultPrice
}

// ApplyEnv overrides provider, model and target language from the
// environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvProvider); v != "" {
		c.DefaultProvider = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		if c.Providers == nil {
			c.Providers = make(map[string]Provider)
		}
		p := c.Providers[c.DefaultProvider]
		p.Model = v
		c.Providers[c.DefaultProvider] = p
	}
	if v := os.Getenv(EnvLanguage); v != "" {
		c.Translation.TargetLanguage = v
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("langtag", func(fl validator.FieldLevel) bool {
		_, err := language.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
