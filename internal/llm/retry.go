package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/logging"
)

type retryProvider struct {
	inner Provider
	cfg   RetryConfig
	log   *zap.Logger
}

// WithRetry retries transient failures of p with jittered exponential
// backoff. An output that fails schema validation is retried once.
func WithRetry(p Provider, cfg RetryConfig, log *zap.Logger) Provider {
	return &retryProvider{inner: p, cfg: cfg, log: logging.OrNop(log).Named("llm.retry")}
}

func (r *retryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	attempts := max(r.cfg.MaxAttempts, 1)
	invalidSeen := false

	for attempt := 1; ; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if attempt >= attempts || !retryable(err, &invalidSeen) {
			return nil, err
		}

		wait := r.delay(attempt, err)
		r.log.Debug("retrying request",
			zap.String("purpose", PurposeFrom(ctx)),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *retryProvider) ModelID() string {
	return r.inner.ModelID()
}

// retryable reports whether another attempt could succeed. invalidSeen
// records that a schema failure was already retried.
func retryable(err error, invalidSeen *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var (
		maxTok  *ErrMaxTokensExceeded
		invalid *ErrInvalidResponse
		unavail *ErrProviderUnavailable
	)
	switch {
	case errors.As(err, &maxTok):
		return false
	case errors.As(err, &invalid):
		if *invalidSeen {
			return false
		}
		*invalidSeen = true
		return true
	case errors.As(err, &unavail):
		return !unavail.Rejected()
	}
	return true
}

// delay is the wait before the attempt following attempt. A rate limit's
// Retry-After wins but is capped at MaxWait.
func (r *retryProvider) delay(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		if r.cfg.MaxWait > 0 {
			return min(rl.RetryAfter, r.cfg.MaxWait)
		}
		return rl.RetryAfter
	}

	mult := r.cfg.Multiplier
	if mult < 1 {
		mult = 1
	}
	wait := float64(r.cfg.InitialWait) * math.Pow(mult, float64(attempt-1))
	if r.cfg.MaxWait > 0 {
		wait = math.Min(wait, float64(r.cfg.MaxWait))
	}
	wait *= 0.8 + 0.4*rand.Float64()
	return time.Duration(wait)
}
