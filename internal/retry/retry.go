// Package retry runs an operation under bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Policy defines retry behavior.
type Policy struct {
	MaxAttempts  int           // Total attempts including the first
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Upper bound for any single delay
	Multiplier   float64       // Growth factor per attempt
	Jitter       float64       // Fraction of the delay to randomize, e.g. 0.25 for ±25%
}

// DefaultPolicy returns the delivery policy: 5 attempts, 2s doubling, capped at 5 minutes.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		MaxDelay:     5 * time.Minute,
		Multiplier:   2.0,
		Jitter:       0.25,
	}
}

// ComputeDelay returns the un-jittered delay after the given 1-based attempt.
func (p Policy) ComputeDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if attempt > p.MaxAttempts {
		return p.MaxDelay
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// withJitter spreads the delay by ±Jitter and clamps it to [0, MaxDelay].
func (p Policy) withJitter(d time.Duration) time.Duration {
	if p.Jitter <= 0 {
		return d
	}
	jittered := float64(d) + float64(d)*p.Jitter*(rand.Float64()*2-1)
	if jittered > float64(p.MaxDelay) {
		jittered = float64(p.MaxDelay)
	}
	if jittered < 0 {
		jittered = 0
	}
	return time.Duration(jittered)
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do calls fn until it succeeds, the attempts run out, or ctx is done.
// Any error from fn is retried. Cancellation returns ctx.Err() immediately.
func Do[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Info("Operation succeeded after retry",
					"operation", operation,
					"attempt", attempt,
				)
			}
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		delay := p.withJitter(p.ComputeDelay(attempt))
		slog.Warn("Operation failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", attempts,
			"backoff", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	slog.Warn("Max attempts exceeded",
		"operation", operation,
		"attempts", attempts,
		"error", lastErr,
	)
	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}
