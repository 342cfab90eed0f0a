// Package metrics provides metrics recording interfaces for the notification service.
// It uses the null object pattern to avoid nil checks throughout the codebase.
package metrics

import "time"

// Recorder defines the interface for recording pipeline metrics.
type Recorder interface {
	// RecordReceived increments the count of messages pulled off the bus.
	RecordReceived()

	// RecordProcessed records a message whose processing completed, with its latency.
	RecordProcessed(latency time.Duration)

	// RecordSent increments the count of delivered emails.
	RecordSent()

	// RecordFailed increments the count of records finalized as Failed.
	RecordFailed()

	// RecordDuplicate increments the count of messages absorbed by dedup.
	RecordDuplicate()

	// RecordRetry increments the count of explicit retry requests.
	RecordRetry()

	// RecordError increments the processing error counter.
	RecordError()

	// RecordPublishError increments the count of swallowed outcome-publish failures.
	RecordPublishError()
}

// NoOp is a no-op implementation of Recorder that discards all metrics.
// Use this when metrics collection is not configured.
type NoOp struct{}

// NewNoOp creates a new no-op metrics recorder.
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) RecordReceived()                 {}
func (n *NoOp) RecordProcessed(_ time.Duration) {}
func (n *NoOp) RecordSent()                     {}
func (n *NoOp) RecordFailed()                   {}
func (n *NoOp) RecordDuplicate()                {}
func (n *NoOp) RecordRetry()                    {}
func (n *NoOp) RecordError()                    {}
func (n *NoOp) RecordPublishError()             {}

// Ensure NoOp implements Recorder
var _ Recorder = (*NoOp)(nil)
