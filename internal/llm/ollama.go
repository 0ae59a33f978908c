package llm

import (
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ProviderOllama is the name of the local Ollama provider.
const ProviderOllama = "ollama"

const defaultOllamaHost = "http://localhost:11434"

func init() {
	mustRegister(Spec{
		Name:         ProviderOllama,
		DefaultModel: "llama3.2",
		EnvKey:       "OLLAMA_HOST",
		Description:  "Local Ollama server",
		KeyOptional:  true,
		New:          func(cfg ClientConfig) Provider { return NewOllamaProvider(cfg) },
	})
}

// NewOllamaProvider creates a provider for a local Ollama server through its
// OpenAI compatible endpoint. The host comes from cfg.Endpoint, then
// OLLAMA_HOST, then the default port on localhost.
func NewOllamaProvider(cfg ClientConfig) *OpenAIProvider {
	host := cfg.Endpoint
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = defaultOllamaHost
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	cfg.Endpoint = strings.TrimSuffix(strings.TrimSuffix(host, "/"), "/v1") + "/v1"
	if cfg.APIKey == "" {
		cfg.APIKey = ProviderOllama
	}

	return &OpenAIProvider{
		name:            ProviderOllama,
		cfg:             cfg,
		client:          openai.NewClientWithConfig(openAIConfig(cfg)),
		legacyMaxTokens: true,
		keyOptional:     true,
	}
}
