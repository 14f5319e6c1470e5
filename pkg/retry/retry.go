package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// Backoff selects how the delay grows between attempts.
type Backoff int

const (
	// Exponential doubles the delay after every failed attempt.
	Exponential Backoff = iota
	// Linear multiplies the initial delay by the attempt number.
	Linear
)

// Config holds retry configuration
type Config struct {
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Backoff      Backoff

	// RetryIf reports whether err is worth another attempt. Nil retries everything.
	RetryIf func(err error) bool
	// OnRetry is called after a failed attempt that will be retried, with the
	// 1-based attempt number and the delay before the next one.
	OnRetry func(attempt uint, delay time.Duration, err error)
	// Timer replaces the real timer, mainly so tests do not sleep.
	Timer retry.Timer
}

// DefaultConfig returns default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Backoff:      Exponential,
	}
}

// Delay returns the wait after the given 0-based attempt index.
func (c Config) Delay(n uint) time.Duration {
	var d time.Duration
	switch c.Backoff {
	case Linear:
		d = c.InitialDelay * time.Duration(n+1)
	default:
		if n > 30 {
			n = 30
		}
		d = c.InitialDelay << n
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Do executes fn sequentially until it succeeds, returns a non-retryable
// error, or the attempt budget is spent. The last error is returned.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = func(error) bool { return true }
	}

	// Delays are keyed on our own count so they do not depend on how
	// retry-go numbers its attempts.
	var made uint
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(func(uint, error, *retry.Config) time.Duration {
			return cfg.Delay(made - 1)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryIf),
		retry.OnRetry(func(_ uint, err error) {
			if cfg.OnRetry != nil && made < attempts {
				cfg.OnRetry(made, cfg.Delay(made-1), err)
			}
		}),
	}
	if cfg.Timer != nil {
		opts = append(opts, retry.WithTimer(cfg.Timer))
	}

	return retry.Do(func() error {
		made++
		return fn()
	}, opts...)
}

// DoWithResult executes a function with retry and returns a result
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}
