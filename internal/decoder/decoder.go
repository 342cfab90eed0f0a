// Package decoder turns raw bus payloads into canonical notification messages.
// Payloads starting with the schema-registry magic byte are decoded as Avro;
// everything else is treated as JSON.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hamba/avro/v2"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

const (
	magicByte = 0x00
	// wireHeaderLen is the magic byte plus a 4-byte big-endian schema id.
	wireHeaderLen = 5
)

var (
	// ErrUnknownSchema is returned for Avro records whose name has no mapping.
	ErrUnknownSchema = errors.New("unknown avro schema")
	// ErrNoRegistry is returned for Avro payloads when no schema registry is configured.
	ErrNoRegistry = errors.New("schema registry not configured")
)

// SchemaResolver resolves a registry schema id. *registry.Client satisfies it.
type SchemaResolver interface {
	GetSchema(ctx context.Context, id int) (avro.Schema, error)
}

// Decoder decodes JSON and schema-registry Avro payloads.
type Decoder struct {
	resolver SchemaResolver
	now      func() time.Time
	newID    func() string

	mu      sync.RWMutex
	schemas map[int]avro.Schema
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithClock overrides the time source used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Decoder) { d.now = now }
}

// WithIDGenerator overrides how missing message ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(d *Decoder) { d.newID = gen }
}

// New creates a decoder. A nil resolver disables the Avro path.
func New(resolver SchemaResolver, opts ...Option) *Decoder {
	d := &Decoder{
		resolver: resolver,
		now:      time.Now,
		newID:    uuid.NewString,
		schemas:  make(map[int]avro.Schema),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsSchemaRegistryPayload reports whether raw carries the registry wire header.
func IsSchemaRegistryPayload(raw []byte) bool {
	return len(raw) >= wireHeaderLen && raw[0] == magicByte
}

// Decode converts raw into a canonical message tagged with topic.
// Malformed JSON never fails; Avro failures are returned as errors.
func (d *Decoder) Decode(ctx context.Context, topic string, raw []byte) (*events.NotificationMessage, error) {
	var (
		msg *events.NotificationMessage
		err error
	)
	if IsSchemaRegistryPayload(raw) {
		msg, err = d.decodeAvro(ctx, raw)
		if err != nil {
			return nil, err
		}
	} else {
		msg = d.decodeJSON(raw)
	}
	msg.Topic = topic
	return msg, nil
}

func (d *Decoder) schema(ctx context.Context, id int) (avro.Schema, error) {
	d.mu.RLock()
	s, ok := d.schemas[id]
	d.mu.RUnlock()
	if ok {
		return s, nil
	}

	if d.resolver == nil {
		return nil, ErrNoRegistry
	}
	s, err := d.resolver.GetSchema(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve schema %d: %w", id, err)
	}

	d.mu.Lock()
	d.schemas[id] = s
	d.mu.Unlock()
	return s, nil
}

func (d *Decoder) fallbackID(id string) string {
	if id == "" {
		return d.newID()
	}
	return id
}

func (d *Decoder) nowUTC() time.Time {
	return d.now().UTC()
}
