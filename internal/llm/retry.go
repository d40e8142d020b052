package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/scholarloop/scholarloop/internal/apierr"
	"github.com/scholarloop/scholarloop/internal/logger"
)

// RetryProvider is a decorator that retries rate limits and transient
// errors with exponential backoff and jitter. Schema and configuration
// failures are terminal.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	log    *logger.Logger

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps a Provider with retry logic. log may be nil.
func WithRetry(p Provider, cfg RetryConfig, log *logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryProvider{
		inner:  p,
		config: cfg,
		log:    log.With("component", "llm.retry"),
		sleep:  sleepCtx,
	}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error

	for attempt := range r.config.MaxAttempts {
		resp, err := r.inner.Generate(withAttempt(ctx, attempt+1), req)
		if err == nil {
			if attempt > 0 {
				r.log.Info("model call succeeded after retry",
					"purpose", PurposeFrom(ctx), "attempt", attempt+1)
			}
			return resp, nil
		}
		lastErr = err

		retry := shouldRetry(err)
		r.log.Warn("model call failed",
			"purpose", PurposeFrom(ctx),
			"attempt", attempt+1,
			"max_attempts", r.config.MaxAttempts,
			"kind", apierr.KindOf(err),
			"retryable", retry,
			"error", err.Error(),
		)
		if !retry {
			return nil, err
		}

		if attempt == r.config.MaxAttempts-1 {
			break
		}

		if err := r.sleep(ctx, r.backoff(attempt, err)); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// shouldRetry reports whether err is worth another attempt.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch apierr.KindOf(err) {
	case apierr.KindSchema, apierr.KindConfig:
		return false
	case apierr.KindRateLimit, apierr.KindTransient:
		return true
	}
	// Unclassified errors (network, decoding) are treated as transient.
	return true
}

// backoff computes the wait duration after the given zero-based attempt.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if r.config.MaxWait > 0 && wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// ±20% jitter.
	wait += wait * 0.2 * (2*rand.Float64() - 1)

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
