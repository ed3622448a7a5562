package llm

import (
	"fmt"
	"os"

	"pagewright/internal/config"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// ProviderConfig holds the resolved provider and API key.
type ProviderConfig struct {
	Provider Provider
	APIKey   string
	Model    string // Optional model override
	BaseURL  string // Optional endpoint override (OpenAI-compatible servers)
}

// DetectProvider resolves a provider from environment variables.
// Priority: GEMINI_API_KEY > OPENAI_API_KEY.
func DetectProvider() (*ProviderConfig, error) {
	providers := []struct {
		envVar   string
		provider Provider
	}{
		{"GEMINI_API_KEY", ProviderGemini},
		{"OPENAI_API_KEY", ProviderOpenAI},
	}

	for _, p := range providers {
		if key := os.Getenv(p.envVar); key != "" {
			return &ProviderConfig{
				Provider: p.provider,
				APIKey:   key,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: set GEMINI_API_KEY or OPENAI_API_KEY", ErrNoProvider)
}

// NewClientFromEnv creates an LLM client based on environment variables.
func NewClientFromEnv() (Client, error) {
	pc, err := DetectProvider()
	if err != nil {
		return nil, err
	}
	return NewClientFromConfig(pc)
}

// NewClientFromConfig creates an LLM client from a provider config.
func NewClientFromConfig(pc *ProviderConfig) (Client, error) {
	switch pc.Provider {
	case ProviderOpenAI:
		cfg := DefaultOpenAIConfig(pc.APIKey)
		if pc.Model != "" {
			cfg.Model = pc.Model
		}
		if pc.BaseURL != "" {
			cfg.BaseURL = pc.BaseURL
		}
		return NewOpenAIClientWithConfig(cfg), nil

	case ProviderGemini:
		cfg := DefaultGeminiConfig(pc.APIKey)
		if pc.Model != "" {
			cfg.Model = pc.Model
		}
		return NewGeminiClientWithConfig(cfg)

	default:
		return nil, fmt.Errorf("unknown provider: %s", pc.Provider)
	}
}

// FromConfig creates an LLM client from application config. When the config
// names no provider it falls back to environment detection; callers that get
// ErrNoProvider back run deterministic paths only.
func FromConfig(cfg *config.Config) (Client, error) {
	if cfg == nil || cfg.LLM.Provider == "" {
		return NewClientFromEnv()
	}

	pc := &ProviderConfig{
		Provider: Provider(cfg.LLM.Provider),
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("%w: provider %q configured without an API key", ErrNoProvider, pc.Provider)
	}
	return NewClientFromConfig(pc)
}
