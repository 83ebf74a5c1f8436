package llm

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "sk"}}, ""},
		{"openrouter with key", Config{Provider: ProviderOpenRouter, OpenRouter: OpenRouterConfig{APIKey: "sk"}}, ""},
		{"mock needs no key", Config{Provider: ProviderMock}, ""},
		{"gemini without key", Config{Provider: ProviderGemini}, "LEARNLOOP_LLM_GEMINI_API_KEY"},
		{"openai without key", Config{Provider: ProviderOpenAI}, "llm.openai.api_key"},
		{"unknown provider", Config{Provider: "ollama"}, `unknown LLM provider: "ollama"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDiscoverConfigOrder(t *testing.T) {
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	if _, ok := DiscoverConfig(); ok {
		t.Fatal("no key set, expected ok=false")
	}

	t.Setenv("OPENROUTER_API_KEY", "or")
	t.Setenv("GEMINI_API_KEY", "gm")
	cfg, ok := DiscoverConfig()
	if !ok || cfg.Provider != ProviderGemini || cfg.Gemini.APIKey != "gm" {
		t.Fatalf("cfg = %+v ok = %v, Gemini outranks OpenRouter", cfg, ok)
	}

	t.Setenv("ANTHROPIC_API_KEY", "an")
	cfg, _ = DiscoverConfig()
	if cfg.Provider != ProviderAnthropic || cfg.Anthropic.Model != "claude-haiku" {
		t.Fatalf("cfg = %+v, Anthropic should win with its default model", cfg)
	}
}
