// Package telemetry provides lightweight spans and named counters.
// Spans are emitted as debug-level slog records when they end.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// CounterSink receives named counter increments.
type CounterSink interface {
	Add(name string, delta uint64)
}

type spanKey struct{}

// Tracer starts spans and records counters.
type Tracer struct {
	logger   *slog.Logger
	counters CounterSink
	now      func() time.Time
}

// New creates a Tracer. A nil logger uses slog.Default(); a nil sink drops counters.
func New(logger *slog.Logger, counters CounterSink) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{logger: logger, counters: counters, now: time.Now}
}

// Noop returns a Tracer that discards everything.
func Noop() *Tracer {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

// StartSpan starts a span named name. The span becomes the parent of spans
// started from the returned context.
func (t *Tracer) StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{tracer: t, name: name, start: t.now()}
	if parent := SpanFromContext(ctx); parent != nil {
		s.parent = parent.name
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

// Count increments the named counter by one.
func (t *Tracer) Count(name string) {
	if t.counters != nil {
		t.counters.Add(name, 1)
	}
}

// SpanFromContext returns the active span, or nil.
func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

// Span is a timed unit of work with key/value tags.
// A nil *Span is valid and does nothing.
type Span struct {
	tracer *Tracer
	name   string
	parent string
	start  time.Time

	mu    sync.Mutex
	tags  []any
	ended bool
}

// Tag attaches a key/value pair to the span.
func (s *Span) Tag(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.tags = append(s.tags, key, value)
	s.mu.Unlock()
}

// Tags returns a copy of the span's tags as alternating key/value pairs.
func (s *Span) Tags() []any {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.tags))
	copy(out, s.tags)
	return out
}

// Name returns the span name.
func (s *Span) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// End finishes the span and logs it. Only the first call has an effect.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	tags := s.tags
	s.mu.Unlock()

	attrs := []any{
		"span", s.name,
		"duration_ms", s.tracer.now().Sub(s.start).Milliseconds(),
	}
	if s.parent != "" {
		attrs = append(attrs, "parent_span", s.parent)
	}
	attrs = append(attrs, tags...)
	s.tracer.logger.Debug("span finished", attrs...)
}
