package decoder

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/hamba/avro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

const (
	weatherSchemaID      = 7
	notificationSchemaID = 8
	unknownSchemaID      = 9
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

type fakeResolver struct {
	schemas map[int]avro.Schema
	calls   int
	err     error
}

func (f *fakeResolver) GetSchema(_ context.Context, id int) (avro.Schema, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.schemas[id]
	if !ok {
		return nil, errors.New("schema not found")
	}
	return s, nil
}

func newResolver(t *testing.T) *fakeResolver {
	t.Helper()
	other, err := avro.Parse(`{"type":"record","name":"OrderPlaced","namespace":"com.example","fields":[{"name":"id","type":"string"}]}`)
	require.NoError(t, err)
	return &fakeResolver{schemas: map[int]avro.Schema{
		weatherSchemaID:      WeatherAlertSchema,
		notificationSchemaID: NotificationMessageSchema,
		unknownSchemaID:      other,
	}}
}

func newTestDecoder(r SchemaResolver) *Decoder {
	return New(r,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "generated-id" }),
	)
}

func frame(t *testing.T, id int, schema avro.Schema, v any) []byte {
	t.Helper()
	body, err := avro.Marshal(schema, v)
	require.NoError(t, err)
	out := make([]byte, wireHeaderLen, wireHeaderLen+len(body))
	out[0] = magicByte
	binary.BigEndian.PutUint32(out[1:], uint32(id))
	return append(out, body...)
}

func ptr[T any](v T) *T { return &v }

func TestDecode_JSONDefaults(t *testing.T) {
	d := newTestDecoder(nil)

	msg, err := d.Decode(context.Background(), "general-events", []byte(`{"recipient":"a@example.com"}`))
	require.NoError(t, err)

	assert.Equal(t, "generated-id", msg.MessageID)
	assert.Equal(t, "general-events", msg.Topic)
	assert.Equal(t, "Notification", msg.Subject)
	assert.Equal(t, "", msg.Body)
	assert.Equal(t, "a@example.com", msg.Recipient)
	assert.Equal(t, fixedNow, msg.Timestamp)
	assert.Nil(t, msg.Metadata)
	assert.Nil(t, msg.WeatherData)
}

func TestDecode_JSONTimestamps(t *testing.T) {
	d := newTestDecoder(nil)
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "epoch millis", raw: `{"timestamp":1735787045000}`, want: ts},
		{name: "rfc3339", raw: `{"timestamp":"2025-01-02T05:04:05+02:00"}`, want: ts},
		{name: "garbage string", raw: `{"timestamp":"yesterday"}`, want: fixedNow},
		{name: "null", raw: `{"timestamp":null}`, want: fixedNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := d.Decode(context.Background(), "t", []byte(tt.raw))
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(msg.Timestamp), "got %v, want %v", msg.Timestamp, tt.want)
			assert.Equal(t, time.UTC, msg.Timestamp.Location())
		})
	}
}

func TestDecode_JSONMetadataStringified(t *testing.T) {
	d := newTestDecoder(nil)

	msg, err := d.Decode(context.Background(), "t", []byte(`{"metadata":{"from":"ops@example.com","isHtml":true,"priority":3}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"from": "ops@example.com", "isHtml": "true", "priority": "3"}, msg.Metadata)
}

func TestDecode_JSONEmptyMetadataIsNotNil(t *testing.T) {
	d := newTestDecoder(nil)

	msg, err := d.Decode(context.Background(), "t", []byte(`{"metadata":{}}`))
	require.NoError(t, err)
	require.NotNil(t, msg.Metadata)
	assert.Empty(t, msg.Metadata)
}

func TestDecode_MalformedJSON(t *testing.T) {
	d := newTestDecoder(nil)

	for _, raw := range []string{`not json at all`, `{"subject":`, `[1,2,3]`} {
		t.Run(raw, func(t *testing.T) {
			msg, err := d.Decode(context.Background(), "weather-alerts", []byte(raw))
			require.NoError(t, err)
			assert.NotEmpty(t, msg.MessageID)
			assert.Equal(t, "Raw Message", msg.Subject)
			assert.Equal(t, "", msg.Recipient)
			assert.Equal(t, raw, msg.Body)
			assert.Equal(t, fixedNow, msg.Timestamp)
			assert.Equal(t, "weather-alerts", msg.Topic)
		})
	}
}

func TestDecode_JSONWeatherAlert(t *testing.T) {
	d := newTestDecoder(nil)
	raw := `{
		"messageId": "wa-1",
		"subject": "Storm incoming",
		"recipient": "a@example.com",
		"alertType": "STORM_WARNING",
		"severity": "BOGUS",
		"location": {"zipCode": "10001", "city": "New York"},
		"weatherConditions": {"currentTemperature": 21.5, "weatherCode": 95}
	}`

	msg, err := d.Decode(context.Background(), "weather-alerts", []byte(raw))
	require.NoError(t, err)
	require.NotNil(t, msg.WeatherData)

	wd := msg.WeatherData
	assert.Equal(t, events.AlertStormWarning, wd.AlertType)
	assert.Equal(t, events.SeverityInfo, wd.Severity)
	assert.Equal(t, "10001", wd.Location.ZipCode)
	assert.Equal(t, "New York", *wd.Location.City)
	assert.Nil(t, wd.Location.State)
	assert.Equal(t, 21.5, *wd.Conditions.CurrentTemperature)
	assert.Equal(t, 95, *wd.Conditions.WeatherCode)
	assert.Nil(t, wd.Conditions.WindSpeed)
}

func TestDecode_AvroNotificationMessage(t *testing.T) {
	r := newResolver(t)
	d := newTestDecoder(r)
	ts := time.Date(2025, 5, 5, 5, 5, 5, 123e6, time.UTC)

	raw := frame(t, notificationSchemaID, NotificationMessageSchema, encNotification{
		MessageID: "n-1",
		Subject:   "Hello",
		Body:      "World",
		Recipient: "a@example.com",
		Timestamp: ts,
	})

	msg, err := d.Decode(context.Background(), "general-events", raw)
	require.NoError(t, err)
	assert.Equal(t, "n-1", msg.MessageID)
	assert.Equal(t, "Hello", msg.Subject)
	assert.Equal(t, "World", msg.Body)
	assert.True(t, ts.Equal(msg.Timestamp))
	assert.Nil(t, msg.Metadata)
	assert.Nil(t, msg.WeatherData)
}

func TestDecode_AvroSchemaIsCached(t *testing.T) {
	r := newResolver(t)
	d := newTestDecoder(r)
	raw := frame(t, notificationSchemaID, NotificationMessageSchema, encNotification{MessageID: "n", Timestamp: fixedNow})

	for i := 0; i < 3; i++ {
		_, err := d.Decode(context.Background(), "t", raw)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, r.calls)
}

func TestDecode_AvroErrors(t *testing.T) {
	t.Run("unknown schema name", func(t *testing.T) {
		d := newTestDecoder(newResolver(t))
		other := newResolver(t).schemas[unknownSchemaID]
		raw := frame(t, unknownSchemaID, other, map[string]any{"id": "x"})

		_, err := d.Decode(context.Background(), "t", raw)
		assert.ErrorIs(t, err, ErrUnknownSchema)
	})

	t.Run("registry failure", func(t *testing.T) {
		d := newTestDecoder(&fakeResolver{err: errors.New("registry down")})
		raw := []byte{0, 0, 0, 0, 1, 2}

		_, err := d.Decode(context.Background(), "t", raw)
		assert.ErrorContains(t, err, "registry down")
	})

	t.Run("no registry configured", func(t *testing.T) {
		d := newTestDecoder(nil)
		_, err := d.Decode(context.Background(), "t", []byte{0, 0, 0, 0, 7, 1})
		assert.ErrorIs(t, err, ErrNoRegistry)
	})

	t.Run("truncated body", func(t *testing.T) {
		d := newTestDecoder(newResolver(t))
		raw := []byte{0, 0, 0, 0, notificationSchemaID, 0x02}

		_, err := d.Decode(context.Background(), "t", raw)
		assert.Error(t, err)
	})
}

func TestDecode_ShortZeroPayloadIsJSON(t *testing.T) {
	d := newTestDecoder(nil)

	msg, err := d.Decode(context.Background(), "t", []byte{0, 1})
	require.NoError(t, err)
	assert.Equal(t, "Raw Message", msg.Subject)
}

func TestDecode_JSONAndAvroAgree(t *testing.T) {
	r := newResolver(t)
	d := newTestDecoder(r)
	ts := time.Date(2025, 2, 14, 18, 0, 0, 250e6, time.UTC)
	meta := map[string]string{"from": "alerts@example.com"}

	avroRaw := frame(t, weatherSchemaID, WeatherAlertSchema, encWeatherAlert{
		MessageID: "wa-42",
		Subject:   "Wind advisory",
		Body:      "",
		Recipient: "a@example.com",
		Timestamp: ts,
		AlertType: "WIND_WARNING",
		Severity:  "SEVERE",
		Location: avroLocation{
			ZipCode:   "60601",
			City:      ptr("Chicago"),
			State:     ptr("IL"),
			Latitude:  ptr(41.88),
			Longitude: ptr(-87.62),
		},
		WeatherConditions: avroConditions{
			CurrentTemperature: ptr(3.0),
			WeatherCode:        ptr(2),
			WeatherDescription: ptr("Partly cloudy"),
			WindSpeed:          ptr(62.0),
			Precipitation:      ptr(0.0),
		},
		Metadata: &meta,
	})

	jsonRaw := `{
		"messageId": "wa-42",
		"subject": "Wind advisory",
		"body": "",
		"recipient": "a@example.com",
		"timestamp": 1739556000250,
		"alertType": "WIND_WARNING",
		"severity": "SEVERE",
		"location": {"zipCode": "60601", "city": "Chicago", "state": "IL", "latitude": 41.88, "longitude": -87.62},
		"weatherConditions": {"currentTemperature": 3.0, "weatherCode": 2, "weatherDescription": "Partly cloudy", "windSpeed": 62.0, "precipitation": 0.0},
		"metadata": {"from": "alerts@example.com"}
	}`

	fromAvro, err := d.Decode(context.Background(), "weather-alerts", avroRaw)
	require.NoError(t, err)
	fromJSON, err := d.Decode(context.Background(), "weather-alerts", []byte(jsonRaw))
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromAvro)
}
