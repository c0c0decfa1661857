package ai

import (
	"fmt"
	"time"

	"github.com/photomanager/api/internal/client"
	"github.com/photomanager/api/internal/config"
)

// NewProvider constructs the adapter for the given provider identifier.
// The set is closed: an unknown identifier is an error, never a silent
// fallback to a different provider.
func NewProvider(providerID string, cfg *config.Config) (Provider, error) {
	timeout := time.Duration(cfg.Analysis.TimeoutSeconds) * time.Second

	switch providerID {
	case ProviderOpenAI:
		chat := client.NewChatClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, timeout, nil)
		return NewStructuredProvider(ProviderOpenAI, chat), nil
	case ProviderGrok:
		chat := client.NewChatClient(cfg.Grok.BaseURL, cfg.Grok.APIKey, cfg.Grok.Model, timeout, nil)
		return NewStructuredProvider(ProviderGrok, chat), nil
	case ProviderOpenRouter:
		headers := map[string]string{
			"HTTP-Referer": cfg.OpenRouter.Referer,
			"X-Title":      cfg.OpenRouter.Title,
		}
		chat := client.NewChatClient(cfg.OpenRouter.BaseURL, cfg.OpenRouter.APIKey, cfg.OpenRouter.Model, timeout, headers)
		return NewStructuredProvider(ProviderOpenRouter, chat), nil
	case ProviderOllama:
		ollama := client.NewOllamaClient(cfg.Ollama.URL, cfg.Ollama.Model, timeout)
		return NewLlavaProvider(ollama), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of openai, grok, openrouter, ollama", providerID)
	}
}

// SupportedProvider reports whether id names a known provider.
func SupportedProvider(id string) bool {
	switch id {
	case ProviderOpenAI, ProviderGrok, ProviderOpenRouter, ProviderOllama:
		return true
	}
	return false
}
