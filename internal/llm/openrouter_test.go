package llm

import "testing"

func TestNewOpenRouterProvider(t *testing.T) {
	if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "openai/gpt-4o-mini"}); err == nil {
		t.Fatal("expected an error without an API key")
	}

	tests := []struct {
		name    string
		cfg     OpenRouterConfig
		wantURL string
	}{
		{"default endpoint", OpenRouterConfig{APIKey: "sk-or", Model: "openai/gpt-4o-mini"}, defaultOpenRouterBaseURL},
		{"custom endpoint", OpenRouterConfig{APIKey: "sk-or", Model: "anthropic/claude-haiku-4.5", BaseURL: "https://proxy.example/v1"}, "https://proxy.example/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewOpenRouterProvider(tt.cfg)
			if err != nil {
				t.Fatalf("NewOpenRouterProvider: %v", err)
			}
			if p.ModelID() != tt.cfg.Model {
				t.Fatalf("ModelID() = %q, vendor-qualified ids pass through unchanged", p.ModelID())
			}
			if p.name != ProviderOpenRouter {
				t.Fatalf("errors would be labelled %q", p.name)
			}
			if p.baseURL != tt.wantURL {
				t.Fatalf("baseURL = %q, want %q", p.baseURL, tt.wantURL)
			}
		})
	}
}
