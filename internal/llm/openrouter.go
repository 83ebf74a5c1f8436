package llm

import "errors"

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider reaches many vendors through OpenRouter's
// OpenAI-compatible endpoint. Model ids are vendor-qualified, such as
// "openai/gpt-4o-mini", and used as given.
type OpenRouterProvider struct {
	*OpenAIProvider
	baseURL string
}

func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter: API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	inner, err := NewOpenAIProvider(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: baseURL})
	if err != nil {
		return nil, err
	}
	inner.name = ProviderOpenRouter
	return &OpenRouterProvider{OpenAIProvider: inner, baseURL: baseURL}, nil
}
