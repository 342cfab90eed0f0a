package metrics

import (
	"time"

	"github.com/Smart-Services-NE/notification-service/pkg/metrics"
)

// CollectorAdapter adapts pkg/metrics.Collector to the Recorder interface.
type CollectorAdapter struct {
	collector *metrics.Collector
}

// NewCollectorAdapter wraps a metrics.Collector to implement Recorder.
func NewCollectorAdapter(collector *metrics.Collector) *CollectorAdapter {
	return &CollectorAdapter{collector: collector}
}

func (a *CollectorAdapter) RecordReceived() {
	a.collector.IncReceived()
}

func (a *CollectorAdapter) RecordProcessed(latency time.Duration) {
	a.collector.ObserveProcessed(latency)
}

func (a *CollectorAdapter) RecordSent() {
	a.collector.IncSent()
}

func (a *CollectorAdapter) RecordFailed() {
	a.collector.IncFailed()
}

func (a *CollectorAdapter) RecordDuplicate() {
	a.collector.IncDuplicate()
}

func (a *CollectorAdapter) RecordRetry() {
	a.collector.IncRetry()
}

func (a *CollectorAdapter) RecordError() {
	a.collector.IncError()
}

func (a *CollectorAdapter) RecordPublishError() {
	a.collector.IncPublishError()
}

// Add forwards a named counter to the collector's custom counters.
// It lets the adapter serve as the telemetry counter sink.
func (a *CollectorAdapter) Add(name string, delta uint64) {
	a.collector.Add(name, delta)
}

// Ensure CollectorAdapter implements Recorder
var _ Recorder = (*CollectorAdapter)(nil)
