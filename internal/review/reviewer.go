package review

import (
	"context"
	"time"

	"github.com/hyperjump/kensa/internal/models"
	"github.com/hyperjump/kensa/internal/providers"
	"go.uber.org/zap"
)

// DefaultBackoff is the wait after the first failed attempt. It doubles after each failure.
const DefaultBackoff = time.Second

// Reviewer sends a prompt to a generator and retries until a valid result is parsed.
type Reviewer struct {
	gen         providers.Generator
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *zap.Logger
}

// Option configures a Reviewer.
type Option func(*Reviewer)

// WithLogger sets a logger for failed attempts.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reviewer) { r.logger = l }
}

// WithBackoff sets the base backoff.
func WithBackoff(d time.Duration) Option {
	return func(r *Reviewer) { r.backoff = d }
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Reviewer) { r.sleep = fn }
}

// NewReviewer creates a Reviewer making at most maxAttempts calls (minimum 1).
func NewReviewer(gen providers.Generator, maxAttempts int, opts ...Option) *Reviewer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	r := &Reviewer{
		gen:         gen,
		maxAttempts: maxAttempts,
		backoff:     DefaultBackoff,
		sleep:       sleepContext,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Review returns the parsed result and true, or nil and false once every attempt has failed
// or ctx is cancelled. Failures never escape as errors; the caller decides what no-result means.
func (r *Reviewer) Review(ctx context.Context, p Prompt) (*models.Result, bool) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, false
		}
		raw, err := r.gen.Generate(ctx, p.System, p.User)
		if err == nil {
			res, perr := ParseResult(raw)
			if perr == nil {
				return res, true
			}
			err = perr
		}
		r.logger.Warn("Review attempt failed",
			zap.String("model", r.gen.Model()),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.maxAttempts),
			zap.Error(err))

		if attempt+1 < r.maxAttempts {
			wait := r.backoff * time.Duration(1<<uint(attempt))
			if err := r.sleep(ctx, wait); err != nil {
				return nil, false
			}
		}
	}
	return nil, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
