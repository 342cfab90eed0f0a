package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// BreakerSettings tunes the per-provider circuit breaker.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	Interval            time.Duration
}

// DefaultBreakerSettings trips after more than 5 consecutive failures and
// probes again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		Interval:            60 * time.Second,
	}
}

// BreakerProvider wraps a Provider with a circuit breaker so a dead backend
// fails fast and the registry moves on to its fallback.
type BreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker[string]
}

// WithBreaker wraps p in a circuit breaker named after the provider.
func WithBreaker(p Provider, s BreakerSettings) *BreakerProvider {
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "email-" + p.Name(),
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Email provider circuit changed state",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &BreakerProvider{inner: p, breaker: cb}
}

// Name returns the wrapped provider's name.
func (b *BreakerProvider) Name() string {
	return b.inner.Name()
}

// IsConfigured returns the wrapped provider's configuration state.
func (b *BreakerProvider) IsConfigured() bool {
	return b.inner.IsConfigured()
}

// State reports the breaker state.
func (b *BreakerProvider) State() gobreaker.State {
	return b.breaker.State()
}

// Send forwards to the wrapped provider unless the circuit is open.
func (b *BreakerProvider) Send(ctx context.Context, req *events.EmailRequest) (string, error) {
	id, err := b.breaker.Execute(func() (string, error) {
		return b.inner.Send(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%s provider unavailable: %w", b.inner.Name(), err)
	}
	return id, err
}
