package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/learnloop/internal/metrics"
	"github.com/abhisek/learnloop/internal/store"
)

var dbSeq atomic.Int64

func openEvents(t *testing.T) store.EventRepo {
	t.Helper()
	s, err := store.Open(fmt.Sprintf("file:llm%d?mode=memory&cache=shared", dbSeq.Add(1)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.EventRepo()
}

func TestLoggingProvider_RecordsSuccess(t *testing.T) {
	events := openEvents(t)
	m := metrics.New()
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`"hi there"`),
		Usage:   Usage{InputTokens: 12, OutputTokens: 3},
	})
	p := WithLogging(mock, ProviderMock, Options{Events: events, Metrics: m})

	ctx := WithPurpose(context.Background(), PurposeTutorChat)
	resp, err := p.Generate(ctx, Request{
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text() != "hi there" {
		t.Errorf("Text() = %q", resp.Text())
	}

	got, err := events.QueryEvents(context.Background(), store.KindLLMRequest, store.QueryOpts{})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	var data store.LLMRequestEventData
	if err := got[0].Decode(&data); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if data.Provider != ProviderMock || data.Model != "mock" || data.Purpose != PurposeTutorChat {
		t.Errorf("unexpected identity fields: %+v", data)
	}
	if !data.Success || data.InputTokens != 12 || data.OutputTokens != 3 {
		t.Errorf("unexpected outcome fields: %+v", data)
	}
	if !strings.Contains(data.RequestBody, "[system]\nbe brief") || !strings.Contains(data.RequestBody, "[user]\nhello") {
		t.Errorf("request body = %q", data.RequestBody)
	}

	if n := testutil.ToFloat64(m.LLMRequests.WithLabelValues(PurposeTutorChat, metrics.ResultOK)); n != 1 {
		t.Errorf("ok counter = %v, want 1", n)
	}
}

func TestLoggingProvider_RecordsFailure(t *testing.T) {
	events := openEvents(t)
	core, logs := observer.New(zapcore.WarnLevel)
	m := metrics.New()
	p := WithLogging(NewMockProvider(MockResponse{Err: &ErrRateLimit{}}), ProviderMock,
		Options{Events: events, Logger: zap.New(core), Metrics: m})

	_, err := p.Generate(WithPurpose(context.Background(), PurposeCaseStudyEval), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %v", err)
	}

	got, _ := events.QueryEvents(context.Background(), store.KindLLMRequest, store.QueryOpts{})
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	var data store.LLMRequestEventData
	_ = got[0].Decode(&data)
	if data.Success || data.ErrorMessage == "" {
		t.Errorf("failure not recorded: %+v", data)
	}
	if logs.FilterMessage("llm request failed").Len() != 1 {
		t.Errorf("expected one warning, got %v", logs.All())
	}
	if n := testutil.ToFloat64(m.LLMRequests.WithLabelValues(PurposeCaseStudyEval, metrics.ResultError)); n != 1 {
		t.Errorf("error counter = %v, want 1", n)
	}
}

func TestLoggingProvider_NoCollaborators(t *testing.T) {
	p := WithLogging(NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)}), ProviderMock, Options{})
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowProvider) ModelID() string { return "slow" }

func TestWithTimeout(t *testing.T) {
	p := WithTimeout(slowProvider{}, 20*time.Millisecond)
	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if WithTimeout(slowProvider{}, 0) != (slowProvider{}) {
		t.Error("zero timeout should return the provider unchanged")
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: ProviderMock}, Options{})
	if err != nil {
		t.Fatalf("NewProvider(mock): %v", err)
	}
	if p.ModelID() != "mock" {
		t.Errorf("ModelID = %q", p.ModelID())
	}

	cfg := DefaultConfig()
	cfg.Provider = ProviderOpenRouter
	cfg.OpenRouter.APIKey = "sk-or-test"
	p, err = NewProvider(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("NewProvider(openrouter): %v", err)
	}
	if p.ModelID() != "openai/gpt-4o-mini" {
		t.Errorf("ModelID = %q", p.ModelID())
	}

	_, err = NewProvider(context.Background(), Config{Provider: ProviderOpenAI}, Options{})
	if err == nil || !strings.Contains(err.Error(), "LEARNLOOP_LLM_OPENAI_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestDiscoverConfig(t *testing.T) {
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	if _, ok := DiscoverConfig(); ok {
		t.Fatal("expected no provider without keys")
	}

	t.Setenv("GEMINI_API_KEY", "g")
	t.Setenv("OPENROUTER_API_KEY", "o")
	cfg, ok := DiscoverConfig()
	if !ok || cfg.Provider != ProviderGemini || cfg.Gemini.APIKey != "g" {
		t.Fatalf("expected gemini to win over openrouter, got %+v", cfg)
	}

	t.Setenv("ANTHROPIC_API_KEY", "a")
	cfg, _ = DiscoverConfig()
	if cfg.Provider != ProviderAnthropic {
		t.Fatalf("expected anthropic first, got %q", cfg.Provider)
	}
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{`plain words`, "plain words"},
		{`"quoted\nline"`, "quoted\nline"},
		{` {"a":1} `, `{"a":1}`},
	}
	for _, tt := range tests {
		r := &Response{Content: json.RawMessage(tt.content)}
		if got := r.Text(); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.content, got, tt.want)
		}
	}
}
