package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DefaultProvider != "openai" {
		t.Errorf("expected default provider 'openai', got %s", cfg.DefaultProvider)
	}
	if len(cfg.Providers) != 4 {
		t.Errorf("expected 4 providers, got %d", len(cfg.Providers))
	}

	tr := cfg.Translation
	if tr.TargetLanguage != "zh-Hans" || tr.BatchSize != 10 || tr.Workers != 10 {
		t.Errorf("unexpected translation defaults %+v", tr)
	}
	if tr.OutputDir != "output" || tr.OutputSuffix != "cn" {
		t.Errorf("unexpected output defaults %+v", tr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestConfig_GetProvider(t *testing.T) {
	cfg := DefaultConfig()

	p, ok := cfg.GetProvider("anthropic")
	if !ok {
		t.Fatal("expected to find 'anthropic' provider")
	}
	if p.Model != "claude-sonnet-4-20250514" {
		t.Errorf("expected model 'claude-sonnet-4-20250514', got %s", p.Model)
	}

	if _, ok := cfg.GetProvider("nonexistent"); ok {
		t.Error("expected not to find 'nonexistent' provider")
	}
}

func TestConfig_GetDefaultProvider(t *testing.T) {
	cfg := DefaultConfig()

	p, ok := cfg.GetDefaultProvider()
	if !ok {
		t.Fatal("expected to find default provider")
	}
	if p.Model != "gpt-5.2" {
		t.Errorf("expected default provider model 'gpt-5.2', got %s", p.Model)
	}
}

func TestConfig_PriceFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pricing["cheap"] = Price{Input: decimal.NewFromInt(1), Output: decimal.NewFromInt(2)}

	if p := cfg.PriceFor("cheap"); !p.Output.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected configured price, got %+v", p)
	}
	if p := cfg.PriceFor("unknown"); !p.Input.Equal(DefaultPrice.Input) {
		t.Errorf("expected default price, got %+v", p)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad language", func(c *Config) { c.Translation.TargetLanguage = "not a tag!" }, "TargetLanguage"},
		{"zero batch", func(c *Config) { c.Translation.BatchSize = 0 }, "BatchSize"},
		{"too many workers", func(c *Config) { c.Translation.Workers = 1000 }, "Workers"},
		{"hot temperature", func(c *Config) { c.Translation.Temperature = 3 }, "Temperature"},
		{"no output dir", func(c *Config) { c.Translation.OutputDir = "" }, "OutputDir"},
		{"bad endpoint", func(c *Config) {
			p := c.Providers["ollama"]
			p.Endpoint = "not a url"
			c.Providers["ollama"] = p
		}, "Endpoint"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "Level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("expected error to name %s, got %v", tc.field, err)
			}
		})
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv(EnvProvider, "anthropic")
	t.Setenv(EnvModel, "claude-opus-4")
	t.Setenv(EnvLanguage, "ja")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.DefaultProvider != "anthropic" {
		t.Errorf("expected provider override, got %s", cfg.DefaultProvider)
	}
	if cfg.Providers["anthropic"].Model != "claude-opus-4" {
		t.Errorf("expected model override on the chosen provider, got %s", cfg.Providers["anthropic"].Model)
	}
	if cfg.Providers["openai"].Model != "gpt-5.2" {
		t.Error("expected other providers untouched")
	}
	if cfg.Translation.TargetLanguage != "ja" {
		t.Errorf("expected language override, got %s", cfg.Translation.TargetLanguage)
	}
}

func TestLoader_SaveAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	loader := NewLoaderWithPath(configPath)

	cfg := DefaultConfig()
	cfg.DefaultProvider = "gemini"
	cfg.Translation.Timeout = 90 * time.Second

	if err := loader.Save(cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}
	if !loader.Exists() {
		t.Error("expected config file to exist after save")
	}

	loaded, err := loader.LoadRaw()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if loaded.DefaultProvider != "gemini" {
		t.Errorf("expected default provider 'gemini', got %s", loaded.DefaultProvider)
	}
	if loaded.Translation.Timeout != 90*time.Second {
		t.Errorf("expected timeout 90s, got %s", loaded.Translation.Timeout)
	}
	if !loaded.PriceFor("gpt-5.2").Output.Equal(DefaultPrice.Output) {
		t.Errorf("expected pricing to survive a round trip, got %+v", loaded.Pricing)
	}
	if loaded.Providers["openai"].APIKey != "${OPENAI_API_KEY}" {
		t.Errorf("expected raw reference kept, got %s", loaded.Providers["openai"].APIKey)
	}
}

func TestLoader_LoadNonExistent(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-default")
	loader := NewLoaderWithPath(filepath.Join(t.TempDir(), "nonexistent", "config.yaml"))

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("expected no error for non-existent file, got: %v", err)
	}
	if cfg.DefaultProvider != "openai" {
		t.Errorf("expected default provider 'openai', got %s", cfg.DefaultProvider)
	}
	if cfg.Providers["openai"].APIKey != "sk-default" {
		t.Errorf("expected defaults to expand env references, got %s", cfg.Providers["openai"].APIKey)
	}
}

func TestLoader_PartialFileKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `translation:
  target_language: ko
  workers: 4
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := NewLoaderWithPath(configPath).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Translation.TargetLanguage != "ko" || cfg.Translation.Workers != 4 {
		t.Errorf("expected file values, got %+v", cfg.Translation)
	}
	if cfg.Translation.BatchSize != 10 || cfg.DefaultProvider != "openai" {
		t.Errorf("expected defaults for missing keys, got %+v", cfg)
	}
}

func TestLoader_ExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_API_KEY", "test-key-12345")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `default_provider: test
providers:
  test:
    api_key: ${TEST_API_KEY}
    model: test-model
    max_tokens: 1000
pricing:
  test-model:
    input: 0.5
    output: "2.25"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := NewLoaderWithPath(configPath).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	p, ok := cfg.GetProvider("test")
	if !ok {
		t.Fatal("expected to find 'test' provider")
	}
	if p.APIKey != "test-key-12345" {
		t.Errorf("expected API key 'test-key-12345', got %s", p.APIKey)
	}
	price := cfg.PriceFor("test-model")
	if !price.Input.Equal(decimal.RequireFromString("0.5")) || !price.Output.Equal(decimal.RequireFromString("2.25")) {
		t.Errorf("unexpected price %+v", price)
	}
}

func TestExpandEnvVars_UnsetVar(t *testing.T) {
	os.Unsetenv("UNSET_VAR_FOR_TEST")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `providers:
  test:
    api_key: ${UNSET_VAR_FOR_TEST}
    model: test-model
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := NewLoaderWithPath(configPath).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if p, _ := cfg.GetProvider("test"); p.APIKey != "" {
		t.Errorf("expected empty API key for unset env var, got %s", p.APIKey)
	}
}

func TestLoader_LoadInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("{{{{invalid yaml"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := NewLoaderWithPath(configPath).Load(); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoader_Init(t *testing.T) {
	loader := NewLoaderWithPath(filepath.Join(t.TempDir(), "config.yaml"))

	if err := loader.Init(); err != nil {
		t.Fatalf("failed to init config: %v", err)
	}
	if !loader.Exists() {
		t.Error("expected config file to exist after init")
	}
	if err := loader.Init(); err == nil {
		t.Error("expected error when initializing existing config")
	}
}

func TestLoader_ReadGlossary(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoaderWithPath(filepath.Join(dir, "config.yaml"))
	if err := os.WriteFile(filepath.Join(dir, "terms.txt"), []byte("Non-paying players -> 零氪玩家\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if g, err := loader.ReadGlossary(cfg); err != nil || g != "" {
		t.Errorf("expected no glossary, got %q (%v)", g, err)
	}

	cfg.Translation.Glossary = "terms.txt"
	g, err := loader.ReadGlossary(cfg)
	if err != nil {
		t.Fatalf("ReadGlossary failed: %v", err)
	}
	if g != "Non-paying players -> 零氪玩家" {
		t.Errorf("unexpected glossary %q", g)
	}

	cfg.Translation.Glossary = "missing.txt"
	if _, err := loader.ReadGlossary(cfg); err == nil {
		t.Error("expected error for missing glossary")
	}
}

func TestLoader_MemFs(t *testing.T) {
	fsys := afero.NewMemMapFs()
	loader := NewLoaderWithFs(fsys, "/cfg/config.yaml")

	if loader.Exists() {
		t.Fatal("expected no config file yet")
	}
	cfg := DefaultConfig()
	cfg.Translation.Glossary = "terms.txt"
	if err := loader.Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := afero.WriteFile(fsys, "/cfg/terms.txt", []byte("  ARPU -> 每用户平均收入\n"), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := loader.LoadRaw()
	if err != nil {
		t.Fatalf("LoadRaw failed: %v", err)
	}
	g, err := loader.ReadGlossary(loaded)
	if err != nil || g != "ARPU -> 每用户平均收入" {
		t.Errorf("unexpected glossary %q (%v)", g, err)
	}
}

func TestNewLoader(t *testing.T) {
	loader, err := NewLoader()
	if err != nil {
		t.Fatalf("failed to create loader: %v", err)
	}
	path := loader.ConfigPath()
	if filepath.Base(path) != ConfigFileName || filepath.Base(filepath.Dir(path)) != ConfigDirName {
		t.Errorf("unexpected config path %s", path)
	}
}
