package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"nexus/internal/testing/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider fails a configured number of times before succeeding.
type scriptedProvider struct {
	failures int
	err      error
	calls    int
}

func (p *scriptedProvider) Reason(ctx context.Context, prompt string) (string, error) {
	p.calls++
	if p.calls <= p.failures {
		return "", p.err
	}
	return "ok", nil
}

func (p *scriptedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return []float32{1, 0}, nil
}

func newTestClient(provider Oracle) (*Client, *[]time.Duration, *mock.MockClock) {
	sleeps := &[]time.Duration{}
	clock := mock.NewMockClock(time.Unix(1700000000, 0))
	client := NewClient(provider, Options{
		MinCallInterval: 4 * time.Second,
		MaxRetries:      5,
		BackoffStep:     15 * time.Second,
		Clock:           clock,
		Sleep:           func(d time.Duration) { *sleeps = append(*sleeps, d) },
	})
	return client, sleeps, clock
}

func TestClient_RetriesRateLimit(t *testing.T) {
	provider := &scriptedProvider{failures: 2, err: errors.New("googleapi: Error 429: quota exceeded")}
	client, sleeps, _ := newTestClient(provider)

	out, err := client.Reason(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, provider.calls)

	// Linear backoff: 15s after attempt 1, 30s after attempt 2.
	assert.Equal(t, []time.Duration{15 * time.Second, 30 * time.Second}, *sleeps)
}

func TestClient_ResourceExhaustedRetried(t *testing.T) {
	provider := &scriptedProvider{failures: 1, err: errors.New("rpc error: code = RESOURCE_EXHAUSTED")}
	client, _, _ := newTestClient(provider)

	_, err := client.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	provider := &scriptedProvider{failures: 10, err: fmt.Errorf("%w", ErrRateLimited)}
	client, sleeps, _ := newTestClient(provider)

	_, err := client.Reason(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 5 attempts")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 5, provider.calls)

	// Four waits between five attempts.
	assert.Equal(t, []time.Duration{
		15 * time.Second, 30 * time.Second, 45 * time.Second, 60 * time.Second,
	}, *sleeps)
}

func TestClient_NonRateLimitErrorNotRetried(t *testing.T) {
	provider := &scriptedProvider{failures: 10, err: errors.New("invalid request")}
	client, sleeps, _ := newTestClient(provider)

	_, err := client.Reason(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, 1, provider.calls)
	assert.Empty(t, *sleeps)
}

func TestClient_NoEmbeddingsPassesThrough(t *testing.T) {
	anthropic := &stubErrProvider{embedErr: ErrNoEmbeddings}
	client, _, _ := newTestClient(anthropic)

	_, err := client.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrNoEmbeddings)
	assert.Equal(t, 1, anthropic.calls)
}

// stubErrProvider always fails with the configured errors.
type stubErrProvider struct {
	reasonErr error
	embedErr  error
	calls     int
}

func (p *stubErrProvider) Reason(ctx context.Context, prompt string) (string, error) {
	p.calls++
	return "", p.reasonErr
}

func (p *stubErrProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	return nil, p.embedErr
}

func TestClient_SpacesConsecutiveCalls(t *testing.T) {
	provider := &scriptedProvider{}
	client, sleeps, clock := newTestClient(provider)

	// First call: no previous call, no spacing sleep.
	_, err := client.Reason(context.Background(), "one")
	require.NoError(t, err)
	assert.Empty(t, *sleeps)

	// Second call one second later: 3s of the 4s interval remain.
	clock.Advance(1 * time.Second)
	_, err = client.Reason(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second}, *sleeps)

	// Third call well past the interval: no sleep.
	clock.Advance(10 * time.Second)
	_, err = client.Reason(context.Background(), "three")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second}, *sleeps)
}

func TestClient_ContextCanceled(t *testing.T) {
	provider := &scriptedProvider{failures: 10, err: errors.New("429")}
	client, _, _ := newTestClient(provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Reason(ctx, "prompt")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, provider.calls)
}

func TestIsRateLimited(t *testing.T) {
	assert.False(t, IsRateLimited(nil))
	assert.False(t, IsRateLimited(errors.New("bad request")))
	assert.True(t, IsRateLimited(ErrRateLimited))
	assert.True(t, IsRateLimited(fmt.Errorf("wrapped: %w", ErrRateLimited)))
	assert.True(t, IsRateLimited(errors.New("Error 429: Too Many Requests")))
	assert.True(t, IsRateLimited(errors.New("code = RESOURCE_EXHAUSTED desc = quota")))
}
