package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"vergirag/internal/domain"
)

// RetryableError marks a generation failure that may succeed when retried
// (timeouts, 429, 5xx). Generators wrap such failures in it.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re) || errors.Is(err, context.DeadlineExceeded)
}

// DefaultRetryBaseDelay is the pause before the second attempt.
const DefaultRetryBaseDelay = time.Second

// RetryBudget is the longest a WithRetry generator can take: attempts full
// attempt timeouts plus the doubling pauses between them. It is zero when
// attempts are unbounded.
func RetryBudget(attempts int, attemptTimeout, baseDelay time.Duration) time.Duration {
	if attemptTimeout <= 0 {
		return 0
	}
	attempts = max(attempts, 1)
	total := time.Duration(attempts) * attemptTimeout
	delay := baseDelay
	for i := 1; i < attempts; i++ {
		total += delay
		delay *= 2
	}
	return total
}

type retryGenerator struct {
	inner       domain.Generator
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

// RetryOption configures WithRetry.
type RetryOption func(*retryGenerator)

// RetryMaxAttempts sets the maximum number of attempts (default: 3).
func RetryMaxAttempts(n int) RetryOption {
	return func(r *retryGenerator) { r.maxAttempts = n }
}

// RetryBaseDelay sets the delay before the second attempt (default: 1s).
// Each further delay doubles.
func RetryBaseDelay(d time.Duration) RetryOption {
	return func(r *retryGenerator) { r.baseDelay = d }
}

// RetryAttemptTimeout bounds every single attempt. Zero means no bound.
func RetryAttemptTimeout(d time.Duration) RetryOption {
	return func(r *retryGenerator) { r.timeout = d }
}

// RetryLogger sets the logger for retry events.
func RetryLogger(l *slog.Logger) RetryOption {
	return func(r *retryGenerator) { r.logger = l }
}

// WithRetry wraps g so that retryable failures are attempted again with
// exponential backoff. Every attempt runs under its own timeout when one
// is configured; the parent context still cancels the whole sequence.
func WithRetry(g domain.Generator, opts ...RetryOption) domain.Generator {
	r := &retryGenerator{
		inner:       g,
		maxAttempts: 3,
		baseDelay:   DefaultRetryBaseDelay,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(r)
	}
	if r.maxAttempts < 1 {
		r.maxAttempts = 1
	}
	return r
}

func (r *retryGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	var lastErr error
	delay := r.baseDelay
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		out, err := r.attempt(ctx, prompt, model)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil || !IsRetryable(err) || attempt == r.maxAttempts {
			break
		}
		r.logger.Warn("generation failed, retrying", "model", model, "attempt", attempt, "delay", delay, "error", err)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	r.logger.Error("generation failed", "model", model, "error", lastErr)
	return "", lastErr
}

func (r *retryGenerator) attempt(ctx context.Context, prompt, model string) (string, error) {
	if r.timeout <= 0 {
		return r.inner.Generate(ctx, prompt, model)
	}
	actx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.Generate(actx, prompt, model)
}
