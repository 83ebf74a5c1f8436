package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var okReply = MockResponse{Content: json.RawMessage(`{"ok":true}`)}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2,
	}
}

func down(status int) MockResponse {
	return MockResponse{Err: &ErrProviderUnavailable{Provider: ProviderMock, StatusCode: status, Err: errors.New("down")}}
}

func garbled() MockResponse {
	return MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`{"reply":`), Err: errors.New("unexpected EOF")}}
}

func TestRetryAttempts(t *testing.T) {
	tests := []struct {
		name      string
		script    []MockResponse
		wantCalls int
		wantErr   bool
	}{
		{"first attempt", []MockResponse{okReply}, 1, false},
		{"server error then ok", []MockResponse{down(503), okReply}, 2, false},
		{"unreachable then ok", []MockResponse{down(0), okReply}, 2, false},
		{"gives up after max attempts", []MockResponse{down(500), down(502), down(503), okReply}, 3, true},
		{"bad key is not retried", []MockResponse{down(401), okReply}, 1, true},
		{"request timeout is retried", []MockResponse{down(408), okReply}, 2, false},
		{"truncated output is not retried", []MockResponse{{Err: &ErrMaxTokensExceeded{}}, okReply}, 1, true},
		{"garbled output retried once", []MockResponse{garbled(), garbled(), okReply}, 2, true},
		{"garbled then ok", []MockResponse{garbled(), okReply}, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.script...)
			_, err := WithRetry(mock, fastRetry(), nil).Generate(context.Background(), Request{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if mock.CallCount() != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", mock.CallCount(), tt.wantCalls)
			}
		})
	}
}

func TestRetryZeroAttemptsStillCallsOnce(t *testing.T) {
	mock := NewMockProvider(down(503), okReply)
	_, err := WithRetry(mock, RetryConfig{}, nil).Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected the single attempt to fail")
	}
	if mock.CallCount() != 1 {
		t.Fatalf("calls = %d, want 1", mock.CallCount())
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	mock := NewMockProvider(down(503), okReply)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(mock, RetryConfig{MaxAttempts: 3, InitialWait: time.Second}, nil).Generate(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("calls = %d, want 1", mock.CallCount())
	}
}

func TestRetryAfterIsCappedAtMaxWait(t *testing.T) {
	r := &retryProvider{cfg: fastRetry()}
	err := &ErrRateLimit{RetryAfter: time.Minute, Err: errors.New("429")}
	if got := r.delay(1, err); got != fastRetry().MaxWait {
		t.Fatalf("delay = %s, want %s", got, fastRetry().MaxWait)
	}

	r.cfg.MaxWait = 0
	if got := r.delay(1, err); got != time.Minute {
		t.Fatalf("uncapped delay = %s, want 1m", got)
	}
}

func TestBackoffStaysWithinJitter(t *testing.T) {
	r := &retryProvider{cfg: RetryConfig{InitialWait: 100 * time.Millisecond, MaxWait: time.Second, Multiplier: 2}}
	for attempt, base := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 5: time.Second} {
		got := r.delay(attempt, errors.New("boom"))
		lo, hi := base*8/10, base*12/10
		if got < lo || got > hi {
			t.Fatalf("attempt %d: delay %s outside [%s, %s]", attempt, got, lo, hi)
		}
	}
}

func TestRetryModelID(t *testing.T) {
	if got := WithRetry(NewMockProvider(), fastRetry(), nil).ModelID(); got != "mock" {
		t.Fatalf("ModelID() = %q", got)
	}
}
