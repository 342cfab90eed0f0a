package processor

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Smart-Services-NE/notification-service/internal/database"
	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// FakeStore is an in-memory DeliveryStore.
type FakeStore struct {
	mu      sync.Mutex
	byID    map[string]events.NotificationRecord
	Creates []events.NotificationRecord
	Updates []events.NotificationRecord

	LookupErr error
	CreateErr error
	UpdateErr error
	ListErr   error
	// UpdateErrOn limits UpdateErr to updates moving to this status.
	UpdateErrOn events.Status
	// CreateFunc, when set, replaces the insert.
	CreateFunc func(rec events.NotificationRecord) (events.NotificationRecord, error)
	// HonorContext makes every call fail with ctx.Err() once ctx is done.
	HonorContext bool
}

func NewFakeStore(recs ...events.NotificationRecord) *FakeStore {
	s := &FakeStore{byID: map[string]events.NotificationRecord{}}
	for _, r := range recs {
		s.byID[r.ID] = r
	}
	return s
}

func (s *FakeStore) ctxErr(ctx context.Context) error {
	if s.HonorContext {
		return ctx.Err()
	}
	return nil
}

func (s *FakeStore) Create(ctx context.Context, rec events.NotificationRecord) (events.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctxErr(ctx); err != nil {
		return events.NotificationRecord{}, err
	}
	s.Creates = append(s.Creates, rec)
	if s.CreateFunc != nil {
		return s.CreateFunc(rec)
	}
	if s.CreateErr != nil {
		return events.NotificationRecord{}, s.CreateErr
	}
	for _, existing := range s.byID {
		if existing.MessageID == rec.MessageID {
			return events.NotificationRecord{}, database.ErrDuplicateKey
		}
	}
	s.byID[rec.ID] = rec
	return rec, nil
}

func (s *FakeStore) Update(ctx context.Context, rec events.NotificationRecord) (events.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctxErr(ctx); err != nil {
		return events.NotificationRecord{}, err
	}
	if s.UpdateErr != nil && (s.UpdateErrOn == "" || rec.Status == s.UpdateErrOn) {
		return events.NotificationRecord{}, s.UpdateErr
	}
	if _, ok := s.byID[rec.ID]; !ok {
		return events.NotificationRecord{}, database.ErrNotFound
	}
	s.Updates = append(s.Updates, rec)
	s.byID[rec.ID] = rec
	return rec, nil
}

func (s *FakeStore) GetByID(ctx context.Context, id string) (*events.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctxErr(ctx); err != nil {
		return nil, err
	}
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	rec, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *FakeStore) GetByMessageID(ctx context.Context, messageID string) (*events.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctxErr(ctx); err != nil {
		return nil, err
	}
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	for _, rec := range s.byID {
		if rec.MessageID == messageID {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

func (s *FakeStore) ListByStatus(_ context.Context, statuses []events.Status, limit int) ([]events.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := []events.NotificationRecord{}
	for _, rec := range s.byID {
		if slices.Contains(statuses, rec.Status) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns the stored record by id.
func (s *FakeStore) Get(id string) events.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

// FakeMailer is a test fake for MailSender.
type FakeMailer struct {
	Requests []*events.EmailRequest
	Err      error
	// FailTimes makes the first N calls fail with Err.
	FailTimes int
	SendFunc  func(ctx context.Context, req *events.EmailRequest) (string, error)
}

func (f *FakeMailer) Send(ctx context.Context, req *events.EmailRequest) (string, error) {
	f.Requests = append(f.Requests, req)
	if f.SendFunc != nil {
		return f.SendFunc(ctx, req)
	}
	if f.Err != nil && (f.FailTimes == 0 || len(f.Requests) <= f.FailTimes) {
		return "", f.Err
	}
	return "provider-msg-1", nil
}

// FakePublisher is a test fake for OutcomePublisher.
type FakePublisher struct {
	Published  []events.NotificationRecord
	PublishErr error
}

func (f *FakePublisher) Publish(_ context.Context, rec *events.NotificationRecord) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Published = append(f.Published, *rec)
	return nil
}

// FakeMetrics is a test fake for metrics.Recorder that tracks calls.
type FakeMetrics struct {
	ReceivedCount     int
	ProcessedCount    int
	SentCount         int
	FailedCount       int
	DuplicateCount    int
	RetryCount        int
	ErrorCount        int
	PublishErrorCount int
}

func (f *FakeMetrics) RecordReceived()                 { f.ReceivedCount++ }
func (f *FakeMetrics) RecordProcessed(_ time.Duration) { f.ProcessedCount++ }
func (f *FakeMetrics) RecordSent()                     { f.SentCount++ }
func (f *FakeMetrics) RecordFailed()                   { f.FailedCount++ }
func (f *FakeMetrics) RecordDuplicate()                { f.DuplicateCount++ }
func (f *FakeMetrics) RecordRetry()                    { f.RetryCount++ }
func (f *FakeMetrics) RecordError()                    { f.ErrorCount++ }
func (f *FakeMetrics) RecordPublishError()             { f.PublishErrorCount++ }

// countingSink records telemetry counters.
type countingSink struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func (c *countingSink) Add(name string, delta uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]uint64{}
	}
	c.counts[name] += delta
}

func (c *countingSink) get(name string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}
