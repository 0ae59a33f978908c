package llm

import (
	"context"
	"errors"
	"testing"
)

// mockProvider is a test implementation of Provider.
type mockProvider struct {
	name string
	cfg  ClientConfig
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) TranslateBatch(ctx context.Context, items []Item, opts Options) (*BatchResult, error) {
	out := make(map[int]string, len(items))
	for _, it := range items {
		out[it.ID] = "[" + opts.Language + "] " + it.Text
	}
	return &BatchResult{Translations: out, Model: "mock-model"}, nil
}

func (m *mockProvider) Validate() error {
	return nil
}

func mockSpec(name string) Spec {
	return Spec{
		Name:         name,
		DefaultModel: name + "-default",
		EnvKey:       "MOCK_" + name + "_KEY",
		New:          func(cfg ClientConfig) Provider { return &mockProvider{name: name, cfg: cfg} },
	}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	if r == nil {
		t.Fatal("expected non-nil registry")
	}
	if r.Count() != 0 {
		t.Errorf("expected 0 providers, got %d", r.Count())
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(mockSpec("test")); err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 provider, got %d", r.Count())
	}
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(mockSpec("test")); err != nil {
		t.Fatalf("failed to register first: %v", err)
	}
	if err := r.Register(mockSpec("test")); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if err := r.Register(Spec{}); err == nil {
		t.Error("expected error for empty name")
	}
	if err := r.Register(Spec{Name: "nofactory"}); err == nil {
		t.Error("expected error for missing factory")
	}
}

func TestRegistry_New(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(mockSpec("test"))
	t.Setenv("MOCK_test_KEY", "env-key")

	p, err := r.New("test", ClientConfig{})
	if err != nil {
		t.Fatalf("failed to build: %v", err)
	}
	mp := p.(*mockProvider)
	if mp.cfg.Model != "test-default" {
		t.Errorf("expected default model, got %s", mp.cfg.Model)
	}
	if mp.cfg.APIKey != "env-key" {
		t.Errorf("expected key from environment, got %s", mp.cfg.APIKey)
	}

	p, _ = r.New("test", ClientConfig{APIKey: "explicit", Model: "custom"})
	mp = p.(*mockProvider)
	if mp.cfg.Model != "custom" || mp.cfg.APIKey != "explicit" {
		t.Errorf("expected explicit config to win, got %+v", mp.cfg)
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("expected error for nonexistent provider")
	}
	if _, err := r.New("nonexistent", ClientConfig{}); err == nil {
		t.Error("expected error building nonexistent provider")
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(mockSpec("gamma"))
	_ = r.Register(mockSpec("alpha"))
	_ = r.Register(mockSpec("beta"))

	specs := r.List()

	if len(specs) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(specs))
	}
	if specs[0].Name != "alpha" || specs[1].Name != "beta" || specs[2].Name != "gamma" {
		t.Errorf("expected sorted list, got %v, %v, %v", specs[0].Name, specs[1].Name, specs[2].Name)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(mockSpec("test"))

	if err := r.Unregister("test"); err != nil {
		t.Fatalf("failed to unregister: %v", err)
	}
	if r.Has("test") {
		t.Error("expected provider to be gone")
	}
	if err := r.Unregister("test"); err == nil {
		t.Error("expected error for unregistering nonexistent provider")
	}
}

func TestDefaultRegistry_BuiltIns(t *testing.T) {
	for _, name := range []string{ProviderAnthropic, ProviderGemini, ProviderOllama, ProviderOpenAI} {
		if !DefaultRegistry.Has(name) {
			t.Errorf("expected built-in provider %s", name)
		}
	}
	if s, _ := DefaultRegistry.Get(ProviderOpenAI); s.DefaultModel != "gpt-5.2" {
		t.Errorf("expected openai default model gpt-5.2, got %s", s.DefaultModel)
	}
}

func TestDefaultRegistry_ValidateWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	for _, name := range []string{ProviderAnthropic, ProviderGemini, ProviderOpenAI} {
		p, err := New(name, ClientConfig{})
		if err != nil {
			t.Fatalf("failed to build %s: %v", name, err)
		}
		if err := p.Validate(); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("%s: expected ErrNotConfigured, got %v", name, err)
		}
	}

	p, _ := New(ProviderOllama, ClientConfig{})
	if err := p.Validate(); err != nil {
		t.Errorf("expected ollama to need no key, got %v", err)
	}
}

func TestDetectProvider(t *testing.T) {
	tests := map[string]string{
		"claude-sonnet-4-20250514": ProviderAnthropic,
		"gpt-4o-mini":              ProviderOpenAI,
		"o3-mini":                  ProviderOpenAI,
		"gemini-2.5-flash":         ProviderGemini,
		"qwen2.5:14b":              ProviderOllama,
		"":                         ProviderOllama,
	}
	for model, want := range tests {
		if got := DetectProvider(model); got != want {
			t.Errorf("DetectProvider(%q) = %s, want %s", model, got, want)
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Language != "zh-Hans" {
		t.Errorf("expected language 'zh-Hans', got %s", opts.Language)
	}
	if opts.MaxTokens != 8192 {
		t.Errorf("expected max_tokens 8192, got %d", opts.MaxTokens)
	}
	if opts.Temperature != 0.1 {
		t.Errorf("expected temperature 0.1, got %f", opts.Temperature)
	}
}
