package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrRateLimit is returned when the vendor throttles a request (HTTP 429).
type ErrRateLimit struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s: %v", providerLabel(e.Provider), e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("%s: rate limited: %v", providerLabel(e.Provider), e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable is returned when the vendor cannot serve a request.
// StatusCode is the HTTP status when the vendor answered, 0 when it could
// not be reached.
type ErrProviderUnavailable struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ErrProviderUnavailable) Error() string {
	msg := providerLabel(e.Provider) + ": unavailable"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// Rejected reports whether the vendor refused the request itself, e.g. a bad
// API key. Sending it again cannot succeed.
func (e *ErrProviderUnavailable) Rejected() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ErrInvalidResponse is returned when the model output does not match the
// requested schema. Content is the raw output.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("llm: invalid response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is returned when structured output was cut off by
// the token limit.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "llm: response truncated at the token limit"
}

func providerLabel(name string) string {
	if name == "" {
		return "llm"
	}
	return name
}

// statusError classifies a failed vendor call by its HTTP status.
func statusError(provider string, status int, retryAfter time.Duration, err error) error {
	if status == http.StatusTooManyRequests {
		return &ErrRateLimit{Provider: provider, RetryAfter: retryAfter, Err: err}
	}
	return &ErrProviderUnavailable{Provider: provider, StatusCode: status, Err: err}
}

// transportError classifies a failure that carried no HTTP status.
// Cancellation is returned as is.
func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ErrProviderUnavailable{Provider: provider, Err: err}
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// LearnerMessage explains a failed tutor request in words fit for the
// course player.
func LearnerMessage(err error) string {
	var (
		rl      *ErrRateLimit
		unavail *ErrProviderUnavailable
		invalid *ErrInvalidResponse
		maxTok  *ErrMaxTokensExceeded
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "The tutor took too long to answer. Please try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.As(err, &rl):
		return "The tutor is busy right now. Please try again in a moment."
	case errors.As(err, &unavail) && unavail.Rejected():
		return "The tutor is not set up correctly. Check the AI provider settings."
	case errors.As(err, &unavail):
		return "The tutor cannot be reached. Check your connection and try again."
	case errors.As(err, &invalid), errors.As(err, &maxTok):
		return "The tutor's answer came back garbled. Please try again."
	default:
		return err.Error()
	}
}
