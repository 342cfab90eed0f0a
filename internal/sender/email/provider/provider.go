// Package provider defines the email provider interface and registry.
// Each backend (SMTP, SES, Resend) implements Provider; the Registry picks a
// primary and falls back in order when it fails.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// ErrNoProvider is returned when no configured provider is available.
var ErrNoProvider = errors.New("no configured email provider available")

// Provider is the interface that all email providers must implement.
type Provider interface {
	// Name returns the provider name (e.g., "smtp", "ses", "resend").
	Name() string

	// Send delivers one email and returns the provider's message id.
	Send(ctx context.Context, req *events.EmailRequest) (string, error)

	// IsConfigured returns true if the provider is properly configured.
	IsConfigured() bool
}

// Registry manages email providers with fallback support.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string // registration order, for deterministic last-resort selection
	primary   string
	fallback  []string
}

// NewRegistry creates a new email provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry. Re-registering a name replaces it.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
	slog.Info("Registered email provider", "name", p.Name(), "configured", p.IsConfigured())
}

// SetPrimary sets the primary provider by name.
func (r *Registry) SetPrimary(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("provider %q not registered", name)
	}
	r.primary = name
	slog.Info("Set primary email provider", "name", name)
	return nil
}

// SetFallback sets the fallback providers in order.
func (r *Registry) SetFallback(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if _, ok := r.providers[name]; !ok {
			return fmt.Errorf("provider %q not registered", name)
		}
	}
	r.fallback = append([]string(nil), names...)
	slog.Info("Set fallback email providers", "order", names)
	return nil
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// GetPrimary returns the primary provider, or the first configured fallback,
// or any configured provider in registration order.
func (r *Registry) GetPrimary() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.primary != "" {
		if p, ok := r.providers[r.primary]; ok && p.IsConfigured() {
			return p, nil
		}
	}

	for _, name := range r.fallback {
		if p, ok := r.providers[name]; ok && p.IsConfigured() {
			slog.Warn("Primary email provider not configured, using fallback",
				"primary", r.primary,
				"fallback", name,
			)
			return p, nil
		}
	}

	for _, name := range r.order {
		if p := r.providers[name]; p.IsConfigured() {
			slog.Warn("Using first available email provider", "name", name)
			return p, nil
		}
	}

	return nil, ErrNoProvider
}

// Send sends an email using the best available provider, trying fallbacks on failure.
// The original provider's error is returned if every fallback also fails.
func (r *Registry) Send(ctx context.Context, req *events.EmailRequest) (string, error) {
	primary, err := r.GetPrimary()
	if err != nil {
		return "", err
	}

	id, err := primary.Send(ctx, req)
	if err == nil {
		return id, nil
	}

	r.mu.RLock()
	fallbacks := r.fallback
	r.mu.RUnlock()

	for _, name := range fallbacks {
		if ctx.Err() != nil {
			break
		}
		p, ok := r.Get(name)
		if !ok || !p.IsConfigured() || p.Name() == primary.Name() {
			continue
		}

		slog.Warn("Primary provider failed, trying fallback",
			"primary", primary.Name(),
			"fallback", name,
			"error", err,
		)

		if fallbackID, fallbackErr := p.Send(ctx, req); fallbackErr == nil {
			return fallbackID, nil
		}
	}
	return "", err
}

// List returns all registered provider names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
