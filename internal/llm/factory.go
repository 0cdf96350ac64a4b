package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/casecheck/internal/model"
)

// ErrProviderDisabled is returned when no provider is configured
var ErrProviderDisabled = errors.New("no LLM provider configured")

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "openrouter":
		if config.BaseURL == "" {
			config.BaseURL = openRouterBaseURL
		}
		p, err := NewOpenAIProvider(config)
		if err != nil {
			return nil, err
		}
		p.name = "openrouter"
		return p, nil

	case "ollama":
		return NewOllamaProvider(config)

	case "mock":
		// Dry run: the agent stops on its first decision
		return NewMockProvider(&Response{Text: `{"decision": "stop", "reason": "mock provider"}`}), nil

	case "":
		return nil, ErrProviderDisabled

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, openrouter, ollama, mock)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	cfg := DefaultConfig()
	cfg.Provider = modelConfig.Provider
	cfg.Model = modelConfig.Model
	cfg.APIKey = modelConfig.APIKey
	cfg.BaseURL = modelConfig.BaseURL
	cfg.HTTPProxy = modelConfig.HTTPProxy
	cfg.HTTPSProxy = modelConfig.HTTPSProxy
	cfg.Temperature = modelConfig.Temperature

	if modelConfig.Timeout > 0 {
		cfg.Timeout = modelConfig.Timeout
	}
	if modelConfig.MaxTokens > 0 {
		cfg.MaxTokens = modelConfig.MaxTokens
	}
	cfg.MaxRetries = modelConfig.MaxRetries
	return cfg
}
