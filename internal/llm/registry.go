package llm

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Factory builds a provider from its client configuration.
type Factory func(cfg ClientConfig) Provider

// Spec describes a provider that can be built by name.
type Spec struct {
	Name         string
	DefaultModel string
	EnvKey       string // environment variable holding the credential or host
	Description  string
	KeyOptional  bool // the provider works without an API key
	New          Factory
}

// Registry manages provider specs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]Spec),
	}
}

// Register adds a provider spec to the registry.
func (r *Registry) Register(s Spec) error {
	if s.Name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if s.New == nil {
		return fmt.Errorf("provider %s has no factory", s.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[s.Name]; exists {
		return fmt.Errorf("provider already registered: %s", s.Name)
	}

	r.specs[s.Name] = s
	return nil
}

// Get returns a provider spec by name.
func (r *Registry) Get(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("provider not found: %s", name)
	}
	return s, nil
}

// New builds the named provider. An empty model falls back to its Spec's
// default and an empty API key to its Spec's environment variable.
func (r *Registry) New(name string, cfg ClientConfig) (Provider, error) {
	s, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = s.DefaultModel
	}
	if cfg.APIKey == "" && !s.KeyOptional && s.EnvKey != "" {
		cfg.APIKey = os.Getenv(s.EnvKey)
	}
	return s.New(cfg), nil
}

// List returns all registered provider specs sorted by name.
func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.specs))
	for _, s := range r.specs {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Has checks if a provider is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.specs[name]
	return ok
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}

// Unregister removes a provider from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.specs[name]; !ok {
		return fmt.Errorf("provider not found: %s", name)
	}
	delete(r.specs, name)
	return nil
}

// DefaultRegistry is the global provider registry. The built-in providers
// register themselves in it.
var DefaultRegistry = NewRegistry()

func mustRegister(s Spec) {
	if err := DefaultRegistry.Register(s); err != nil {
		panic(err)
	}
}

// New builds a provider from the default registry.
func New(name string, cfg ClientConfig) (Provider, error) {
	return DefaultRegistry.New(name, cfg)
}

// List returns all provider specs from the default registry.
func List() []Spec {
	return DefaultRegistry.List()
}

// DetectProvider guesses the provider from a model name. Unknown models are
// assumed to be served by a local Ollama.
func DetectProvider(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude"):
		return ProviderAnthropic
	case strings.HasPrefix(m, "gpt"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"), strings.HasPrefix(m, "chatgpt"):
		return ProviderOpenAI
	case strings.HasPrefix(m, "gemini"):
		return ProviderGemini
	default:
		return ProviderOllama
	}
}
