package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vergirag/internal/domain"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Model
		wantErr bool
	}{
		{"default", "", DefaultModel, false},
		{"gemma small", "gemma2:2b", Gemma2_2B, false},
		{"gemma large", " gemma2:9b ", Gemma2_9B, false},
		{"mistral", "mistral:7b", Mistral7B, false},
		{"unknown", "llama3.2", "", true},
		{"case differs", "Mistral:7b", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrUnsupportedModel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseModel_CustomAllowList(t *testing.T) {
	m, err := ParseModel("", Mistral7B)
	require.NoError(t, err)
	assert.Equal(t, Mistral7B, m)

	_, err = ParseModel("gemma2:2b", Mistral7B)
	assert.ErrorIs(t, err, domain.ErrUnsupportedModel)
}

type scriptedGenerator struct {
	errs  []error
	calls int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	return "cevap", nil
}

func TestWithRetry_RetriesRetryableErrors(t *testing.T) {
	inner := &scriptedGenerator{errs: []error{
		&RetryableError{Err: errors.New("503")},
		context.DeadlineExceeded,
	}}
	g := WithRetry(inner, RetryBaseDelay(time.Millisecond))

	out, err := g.Generate(context.Background(), "p", "gemma2:2b")
	require.NoError(t, err)
	assert.Equal(t, "cevap", out)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	perm := errors.New("model not found")
	inner := &scriptedGenerator{errs: []error{perm}}
	g := WithRetry(inner, RetryBaseDelay(time.Millisecond))

	_, err := g.Generate(context.Background(), "p", "gemma2:2b")
	assert.ErrorIs(t, err, perm)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetry_GivesUp(t *testing.T) {
	retry := &RetryableError{Err: errors.New("429")}
	inner := &scriptedGenerator{errs: []error{retry, retry, retry, retry}}
	g := WithRetry(inner, RetryMaxAttempts(2), RetryBaseDelay(time.Millisecond))

	_, err := g.Generate(context.Background(), "p", "gemma2:2b")
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 2, inner.calls)
}

type slowGenerator struct{}

func (slowGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestWithRetry_AttemptTimeout(t *testing.T) {
	g := WithRetry(slowGenerator{},
		RetryMaxAttempts(2),
		RetryBaseDelay(time.Millisecond),
		RetryAttemptTimeout(10*time.Millisecond),
	)

	start := time.Now()
	_, err := g.Generate(context.Background(), "p", "gemma2:2b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRetryBudget(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		timeout  time.Duration
		want     time.Duration
	}{
		{"single attempt", 1, 10 * time.Second, 10 * time.Second},
		{"zero attempts run once", 0, 10 * time.Second, 10 * time.Second},
		{"pauses between attempts", 3, 10 * time.Second, 30*time.Second + time.Second + 2*time.Second},
		{"unbounded attempts", 3, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryBudget(tt.attempts, tt.timeout, DefaultRetryBaseDelay))
		})
	}
}
