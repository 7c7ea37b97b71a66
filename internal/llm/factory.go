package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/clausewatch/internal/model"
)

// NewProvider creates a new LLM provider based on configuration.
// An empty provider name returns nil: question answering is disabled.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "gemini", "google":
		return NewGeminiProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, gemini, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the application config into an llm.Config
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:        llmCfg.Provider,
		Model:           llmCfg.Model,
		APIKey:          llmCfg.APIKey,
		BaseURL:         llmCfg.BaseURL,
		Timeout:         llmCfg.Timeout,
		MaxTokens:       llmCfg.MaxTokens,
		MaxContextChars: llmCfg.MaxContextChars,
		HTTPProxy:       httpCfg.HTTPProxy,
		HTTPSProxy:      httpCfg.HTTPSProxy,
		NoProxy:         httpCfg.NoProxy,
	}
}
