package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"nexus/internal/metrics"
	"nexus/pkg/logging"
)

// Clock abstracts the time source so call spacing can be tested without
// real waits.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options tune the client's pacing and retry behavior. Zero values fall
// back to the package defaults, sized for hosted free-tier quotas.
type Options struct {
	// MinCallInterval is the minimum spacing between consecutive provider
	// calls.
	MinCallInterval time.Duration

	// MaxRetries is the number of attempts per call when the provider
	// reports rate limiting.
	MaxRetries int

	// BackoffStep grows the wait linearly: attempt * BackoffStep.
	BackoffStep time.Duration

	// Clock defaults to the system clock.
	Clock Clock

	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
}

const (
	defaultMinCallInterval = 4 * time.Second
	defaultMaxRetries      = 5
	defaultBackoffStep     = 15 * time.Second
)

// Client wraps a provider with call spacing and rate limit retries. Calls
// are serialized: graph construction fires many prompts back to back and
// hosted providers throttle aggressively, so one in-flight call at a time
// with MinCallInterval spacing keeps builds inside free-tier quotas.
type Client struct {
	provider Oracle
	opts     Options

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient wraps the provider. See Options for tuning.
func NewClient(provider Oracle, opts Options) *Client {
	if opts.MinCallInterval <= 0 {
		opts.MinCallInterval = defaultMinCallInterval
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BackoffStep <= 0 {
		opts.BackoffStep = defaultBackoffStep
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	return &Client{provider: provider, opts: opts}
}

// Reason forwards to the provider with pacing and retries applied.
func (c *Client) Reason(ctx context.Context, prompt string) (string, error) {
	var out string
	err := c.do(ctx, "reason", func() error {
		var err error
		out, err = c.provider.Reason(ctx, prompt)
		return err
	})
	return out, err
}

// Embed forwards to the provider with pacing and retries applied.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := c.do(ctx, "embed", func() error {
		var err error
		out, err = c.provider.Embed(ctx, text)
		return err
	})
	return out, err
}

func (c *Client) do(ctx context.Context, kind string, call func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Space this call out from the previous one.
	if !c.lastCall.IsZero() {
		if elapsed := c.opts.Clock.Now().Sub(c.lastCall); elapsed < c.opts.MinCallInterval {
			c.opts.Sleep(c.opts.MinCallInterval - elapsed)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := call()
		if err == nil {
			c.lastCall = c.opts.Clock.Now()
			metrics.OracleCall(kind, true)
			return nil
		}
		if !IsRateLimited(err) {
			metrics.OracleCall(kind, false)
			return err
		}

		lastErr = err
		metrics.OracleRetry()
		if attempt == c.opts.MaxRetries {
			break
		}

		wait := time.Duration(attempt) * c.opts.BackoffStep
		logging.Warn("Oracle", "Rate limited, waiting %s before retry %d/%d", wait, attempt+1, c.opts.MaxRetries)
		c.opts.Sleep(wait)
	}

	metrics.OracleCall(kind, false)
	return fmt.Errorf("still rate limited after %d attempts: %w", c.opts.MaxRetries, lastErr)
}

// IsRateLimited reports whether err looks like provider throttling. The
// provider SDKs surface 429s in different shapes, so beyond the sentinel
// this falls back to the status markers they all embed in the message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
