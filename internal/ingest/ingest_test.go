package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smart-Services-NE/notification-service/internal/consumer"
	"github.com/Smart-Services-NE/notification-service/internal/events"
	"github.com/Smart-Services-NE/notification-service/internal/processor"
)

type fakeReader struct {
	mu         sync.Mutex
	queue      []kafka.Message
	fetchErrs  []error
	committed  []int64
	commitErr  error
	closeCalls int
	fetches    int
}

func (f *fakeReader) Fetch(ctx context.Context) (*kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		return nil, err
	}
	if len(f.queue) == 0 {
		return nil, consumer.ErrNoMessage
	}
	msg := f.queue[0]
	f.queue = f.queue[1:]
	return &msg, nil
}

func (f *fakeReader) Commit(_ context.Context, msg *kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, msg.Offset)
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeReader) snapshot() (committed []int64, fetches, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...), f.fetches, f.closeCalls
}

type fakeDecoder struct {
	err error
}

func (d *fakeDecoder) Decode(_ context.Context, topic string, raw []byte) (*events.NotificationMessage, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &events.NotificationMessage{MessageID: string(raw), Topic: topic}, nil
}

type fakeProcessor struct {
	mu      sync.Mutex
	seen    []string
	results map[string]processor.ProcessResult
	panicOn string
}

func (p *fakeProcessor) Process(_ context.Context, msg *events.NotificationMessage) processor.ProcessResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, msg.MessageID)
	if msg.MessageID == p.panicOn {
		panic("boom")
	}
	if res, ok := p.results[msg.MessageID]; ok {
		return res
	}
	return processor.ProcessResult{Success: true}
}

func (p *fakeProcessor) seenIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

func runLoop(t *testing.T, l *Loop) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	return func() {
		stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Run() did not return after cancellation")
		}
	}
}

func msg(offset int64, id string) kafka.Message {
	return kafka.Message{Topic: "weather-alerts", Offset: offset, Value: []byte(id)}
}

var fastConfig = Config{IdleSleep: time.Millisecond, ErrorCooldown: time.Millisecond}

func TestLoop_CommitsOnlyOnSuccess(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{msg(1, "ok-1"), msg(2, "bad"), msg(3, "ok-2")}}
	proc := &fakeProcessor{results: map[string]processor.ProcessResult{
		"bad": {Error: &processor.ErrorInfo{Code: processor.CodeSendFailed, Message: "smtp down"}},
	}}

	stop := runLoop(t, NewLoop(reader, &fakeDecoder{}, proc, nil, fastConfig))
	require.Eventually(t, func() bool { return len(proc.seenIDs()) == 3 }, time.Second, time.Millisecond)
	stop()

	committed, _, closes := reader.snapshot()
	assert.Equal(t, []int64{1, 3}, committed)
	assert.Equal(t, []string{"ok-1", "bad", "ok-2"}, proc.seenIDs())
	assert.Equal(t, 1, closes)
}

func TestLoop_DuplicateIsCommitted(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{msg(5, "dup")}}
	proc := &fakeProcessor{results: map[string]processor.ProcessResult{
		"dup": {Success: true, Duplicate: true},
	}}

	stop := runLoop(t, NewLoop(reader, &fakeDecoder{}, proc, nil, fastConfig))
	require.Eventually(t, func() bool {
		committed, _, _ := reader.snapshot()
		return len(committed) == 1
	}, time.Second, time.Millisecond)
	stop()
}

func TestLoop_SurvivesErrorsAndPanics(t *testing.T) {
	reader := &fakeReader{
		fetchErrs: []error{errors.New("broker unreachable")},
		queue:     []kafka.Message{msg(1, "explode"), msg(2, "ok")},
	}
	proc := &fakeProcessor{panicOn: "explode"}

	stop := runLoop(t, NewLoop(reader, &fakeDecoder{}, proc, nil, fastConfig))
	require.Eventually(t, func() bool {
		committed, _, _ := reader.snapshot()
		return len(committed) == 1
	}, time.Second, time.Millisecond)
	stop()

	committed, _, _ := reader.snapshot()
	assert.Equal(t, []int64{2}, committed)
}

func TestLoop_DecodeErrorIsNotCommitted(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{msg(1, "x")}}
	proc := &fakeProcessor{}

	stop := runLoop(t, NewLoop(reader, &fakeDecoder{err: errors.New("unknown schema")}, proc, nil, fastConfig))
	require.Eventually(t, func() bool {
		_, fetches, _ := reader.snapshot()
		return fetches >= 2
	}, time.Second, time.Millisecond)
	stop()

	committed, _, _ := reader.snapshot()
	assert.Empty(t, committed)
	assert.Empty(t, proc.seenIDs())
}

func TestLoop_CancellationInterruptsCooldown(t *testing.T) {
	reader := &fakeReader{fetchErrs: []error{errors.New("broker unreachable")}}
	l := NewLoop(reader, &fakeDecoder{}, &fakeProcessor{}, nil, Config{ErrorCooldown: time.Hour})

	stop := runLoop(t, l)
	require.Eventually(t, func() bool {
		_, fetches, _ := reader.snapshot()
		return fetches == 1
	}, time.Second, time.Millisecond)
	stop()

	_, _, closes := reader.snapshot()
	assert.Equal(t, 1, closes)

	l.close()
	_, _, closes = reader.snapshot()
	assert.Equal(t, 1, closes, "reader must be closed exactly once")
}

func TestNewLoop_Defaults(t *testing.T) {
	l := NewLoop(&fakeReader{}, &fakeDecoder{}, &fakeProcessor{}, nil, Config{})
	assert.Equal(t, DefaultIdleSleep, l.idleSleep)
	assert.Equal(t, DefaultErrorCooldown, l.errorCooldown)
	assert.NotNil(t, l.metrics)
}
