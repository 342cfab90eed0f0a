// Package metrics collects delivery counters in-process and periodically
// publishes a JSON snapshot to Redis for dashboards.
package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is the Redis key prefix for service snapshots.
	KeyPrefix = "metrics:"
	// SnapshotTTL is how long a snapshot stays in Redis if not refreshed.
	SnapshotTTL = 2 * time.Minute
	// DefaultReportInterval is the default interval between Redis writes.
	DefaultReportInterval = 30 * time.Second
)

// Snapshot is the point-in-time view of a collector.
type Snapshot struct {
	ServiceName string    `json:"service_name"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`

	MessagesReceived  uint64 `json:"messages_received"`
	MessagesProcessed uint64 `json:"messages_processed"`
	EmailsSent        uint64 `json:"emails_sent"`
	EmailsFailed      uint64 `json:"emails_failed"`
	Duplicates        uint64 `json:"duplicates"`
	Retries           uint64 `json:"retries"`
	ProcessingErrors  uint64 `json:"processing_errors"`
	PublishErrors     uint64 `json:"publish_errors"`

	MessagesPerSecond      float64 `json:"messages_per_second"`
	AvgProcessingLatencyMs float64 `json:"avg_processing_latency_ms"`

	Custom map[string]uint64 `json:"custom,omitempty"`
}

// Collector accumulates counters and reports them to Redis.
// A nil Redis client keeps the collector usable for in-process snapshots only.
type Collector struct {
	serviceName    string
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	received      atomic.Uint64
	processed     atomic.Uint64
	sent          atomic.Uint64
	failed        atomic.Uint64
	duplicates    atomic.Uint64
	retries       atomic.Uint64
	errors        atomic.Uint64
	publishErrors atomic.Uint64

	totalLatencyNs atomic.Uint64
	latencyCount   atomic.Uint64

	rateMu             sync.Mutex
	lastReportTime     time.Time
	lastProcessedCount uint64

	customMu sync.RWMutex
	custom   map[string]*atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCollector creates a collector for the named service.
func NewCollector(serviceName string, redisClient *redis.Client) *Collector {
	now := time.Now().UTC()
	return &Collector{
		serviceName:    serviceName,
		redis:          redisClient,
		startedAt:      now,
		reportInterval: DefaultReportInterval,
		lastReportTime: now,
		custom:         make(map[string]*atomic.Uint64),
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval sets the interval between Redis writes. Call before Start.
func (c *Collector) SetReportInterval(interval time.Duration) {
	if interval > 0 {
		c.reportInterval = interval
	}
}

// Start begins periodic reporting until ctx is cancelled or Stop is called.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.flush(context.Background())
				return
			case <-c.stopCh:
				c.flush(context.Background())
				return
			case <-ticker.C:
				c.flush(ctx)
			}
		}
	}()
}

// Stop ends reporting and waits for the final write.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

func (c *Collector) IncReceived() { c.received.Add(1) }
func (c *Collector) IncSent() { c.sent.Add(1) }
func (c *Collector) IncFailed() { c.failed.Add(1) }
func (c *Collector) IncDuplicate() { c.duplicates.Add(1) }
func (c *Collector) IncRetry() { c.retries.Add(1) }
func (c *Collector) IncError() { c.errors.Add(1) }
func (c *Collector) IncPublishError() { c.publishErrors.Add(1) }

// ObserveProcessed counts a finished message and its end-to-end latency.
func (c *Collector) ObserveProcessed(latency time.Duration) {
	c.processed.Add(1)
	c.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
	c.latencyCount.Add(1)
}

// Add increments a named custom counter.
func (c *Collector) Add(name string, delta uint64) {
	c.customMu.RLock()
	counter, ok := c.custom[name]
	c.customMu.RUnlock()

	if !ok {
		c.customMu.Lock()
		if counter, ok = c.custom[name]; !ok {
			counter = &atomic.Uint64{}
			c.custom[name] = counter
		}
		c.customMu.Unlock()
	}
	counter.Add(delta)
}

// Snapshot returns the current counters without touching Redis.
func (c *Collector) Snapshot() *Snapshot {
	now := time.Now().UTC()
	processed := c.processed.Load()

	c.rateMu.Lock()
	var rate float64
	if elapsed := now.Sub(c.lastReportTime).Seconds(); elapsed > 0 {
		rate = float64(processed-c.lastProcessedCount) / elapsed
	}
	c.rateMu.Unlock()

	var avgMs float64
	if n := c.latencyCount.Load(); n > 0 {
		avgMs = float64(c.totalLatencyNs.Load()) / float64(n) / float64(time.Millisecond)
	}

	c.customMu.RLock()
	custom := make(map[string]uint64, len(c.custom))
	for name, counter := range c.custom {
		custom[name] = counter.Load()
	}
	c.customMu.RUnlock()

	return &Snapshot{
		ServiceName:            c.serviceName,
		StartedAt:              c.startedAt,
		LastUpdated:            now,
		MessagesReceived:       c.received.Load(),
		MessagesProcessed:      processed,
		EmailsSent:             c.sent.Load(),
		EmailsFailed:           c.failed.Load(),
		Duplicates:             c.duplicates.Load(),
		Retries:                c.retries.Load(),
		ProcessingErrors:       c.errors.Load(),
		PublishErrors:          c.publishErrors.Load(),
		MessagesPerSecond:      rate,
		AvgProcessingLatencyMs: avgMs,
		Custom:                 custom,
	}
}

func (c *Collector) flush(ctx context.Context) {
	if c.redis == nil {
		return
	}

	snap := c.Snapshot()

	c.rateMu.Lock()
	c.lastReportTime = snap.LastUpdated
	c.lastProcessedCount = snap.MessagesProcessed
	c.rateMu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to marshal metrics snapshot", "service", c.serviceName, "error", err)
		return
	}

	key := KeyPrefix + c.serviceName
	if err := c.redis.Set(ctx, key, data, SnapshotTTL).Err(); err != nil {
		slog.Warn("Failed to write metrics to Redis", "service", c.serviceName, "error", err)
		return
	}
	slog.Debug("Metrics written to Redis", "service", c.serviceName, "key", key)
}
