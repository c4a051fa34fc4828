// Package retry runs a function until it succeeds, with multiplicative
// backoff between attempts.
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Config bounds one retry loop.
type Config struct {
	MaxAttempts int           // total attempts; must be at least 1
	InitialWait time.Duration // wait after the first failure
	MaxWait     time.Duration // cap on the grown wait
	Multiplier  float64       // growth factor between waits
}

// transientError marks an error as worth retrying.
type transientError struct {
	err error
}

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// Transient wraps err so Do will retry it. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var t transientError
	return errors.As(err, &t)
}

// Do calls fn until it returns nil, a non-transient error, the attempt budget
// runs out, or ctx is cancelled. The wait between attempts starts at
// InitialWait and is multiplied by Multiplier, capped at MaxWait.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := float64(cfg.InitialWait) * math.Pow(cfg.Multiplier, float64(attempt-1))
		if cfg.MaxWait > 0 && wait > float64(cfg.MaxWait) {
			wait = float64(cfg.MaxWait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(wait)):
		}
	}
	return lastErr
}
