package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: "gpt-4o-mini", name: ProviderOpenAI}
}

func openAIReply(content, finish string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini-2024-07-18",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": finish,
			}},
			"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
		})
	}
}

func openAIError(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "error", "message": http.StatusText(status)},
		})
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var got openai.ChatCompletionRequest
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		openAIReply(`{"reply":"Try naming the feeling first."}`, "stop")(w, r)
	})

	resp, err := p.Generate(context.Background(), Request{
		System: "You are a communication coach.",
		Messages: []Message{
			{Role: RoleUser, Content: "How do I open a hard conversation?"},
			{Role: RoleAssistant, Content: "What is the conversation about?"},
			{Role: RoleUser, Content: "A missed deadline."},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Usage != (Usage{InputTokens: 40, OutputTokens: 25, TotalTokens: 65}) {
		t.Fatalf("usage = %+v", resp.Usage)
	}
	if resp.StopReason != StopEnd || resp.Model != "gpt-4o-mini-2024-07-18" {
		t.Fatalf("stop = %q model = %q", resp.StopReason, resp.Model)
	}

	if len(got.Messages) != 4 || got.Messages[0].Role != openai.ChatMessageRoleSystem || got.Messages[2].Role != openai.ChatMessageRoleAssistant {
		t.Fatalf("messages sent = %+v", got.Messages)
	}
	if got.MaxCompletionTokens != defaultMaxTokens {
		t.Fatalf("max tokens = %d, want the default %d", got.MaxCompletionTokens, defaultMaxTokens)
	}
}

func TestOpenAITruncatedStructuredOutput(t *testing.T) {
	p := newTestOpenAIProvider(t, openAIReply(`{"scores":[{"crit`, "length"))
	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "grade this"}},
		Schema:   &Schema{Name: "openai-truncated", Definition: map[string]any{"type": "object"}},
	})
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("err = %T (%v), want ErrMaxTokensExceeded", err, err)
	}
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		status   int
		rate     bool
		rejected bool
	}{
		{http.StatusTooManyRequests, true, false},
		{http.StatusInternalServerError, false, false},
		{http.StatusUnauthorized, false, true},
	}
	for _, tt := range tests {
		p := newTestOpenAIProvider(t, openAIError(tt.status))
		_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})

		var rl *ErrRateLimit
		if errors.As(err, &rl) != tt.rate {
			t.Fatalf("%d: rate limit = %v, err %v", tt.status, !tt.rate, err)
		}
		if tt.rate {
			continue
		}
		var unavail *ErrProviderUnavailable
		if !errors.As(err, &unavail) {
			t.Fatalf("%d: err = %T (%v)", tt.status, err, err)
		}
		if unavail.StatusCode != tt.status || unavail.Rejected() != tt.rejected {
			t.Fatalf("%d: status %d rejected %v", tt.status, unavail.StatusCode, unavail.Rejected())
		}
	}
}

func TestOpenAIAliases(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-mini"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	if p.ModelID() != "gpt-4o-mini" {
		t.Fatalf("ModelID() = %q", p.ModelID())
	}
	if _, err := NewOpenAIProvider(OpenAIConfig{Model: "gpt"}); err == nil {
		t.Fatal("expected an error without an API key")
	}
}
