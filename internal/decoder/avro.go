package decoder

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/hamba/avro/v2"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// Timestamp is typed any so both a plain long and a timestamp-millis
// logical type decode.
type avroNotification struct {
	MessageID string             `avro:"messageId"`
	Subject   string             `avro:"subject"`
	Body      string             `avro:"body"`
	Recipient string             `avro:"recipient"`
	Timestamp any                `avro:"timestamp"`
	Metadata  *map[string]string `avro:"metadata"`
}

type avroWeatherAlert struct {
	MessageID         string             `avro:"messageId"`
	Subject           string             `avro:"subject"`
	Body              string             `avro:"body"`
	Recipient         string             `avro:"recipient"`
	Timestamp         any                `avro:"timestamp"`
	AlertType         string             `avro:"alertType"`
	Severity          string             `avro:"severity"`
	Location          avroLocation       `avro:"location"`
	WeatherConditions avroConditions     `avro:"weatherConditions"`
	Metadata          *map[string]string `avro:"metadata"`
}

type avroLocation struct {
	ZipCode   string   `avro:"zipCode"`
	City      *string  `avro:"city"`
	State     *string  `avro:"state"`
	Latitude  *float64 `avro:"latitude"`
	Longitude *float64 `avro:"longitude"`
}

type avroConditions struct {
	CurrentTemperature *float64 `avro:"currentTemperature"`
	WeatherCode        *int     `avro:"weatherCode"`
	WeatherDescription *string  `avro:"weatherDescription"`
	WindSpeed          *float64 `avro:"windSpeed"`
	Precipitation      *float64 `avro:"precipitation"`
}

func (d *Decoder) decodeAvro(ctx context.Context, raw []byte) (*events.NotificationMessage, error) {
	id := int(binary.BigEndian.Uint32(raw[1:wireHeaderLen]))
	schema, err := d.schema(ctx, id)
	if err != nil {
		return nil, err
	}

	named, ok := schema.(avro.NamedSchema)
	if !ok {
		return nil, fmt.Errorf("%w: schema %d is %s, not a record", ErrUnknownSchema, id, schema.Type())
	}

	body := raw[wireHeaderLen:]
	switch named.Name() {
	case WeatherAlertName:
		return d.mapWeatherAlert(schema, body)
	case NotificationMessageName:
		return d.mapNotification(schema, body)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, named.FullName())
	}
}

func (d *Decoder) mapNotification(schema avro.Schema, body []byte) (*events.NotificationMessage, error) {
	var rec avroNotification
	if err := avro.Unmarshal(schema, body, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", NotificationMessageName, err)
	}
	return &events.NotificationMessage{
		MessageID: d.fallbackID(rec.MessageID),
		Subject:   rec.Subject,
		Body:      rec.Body,
		Recipient: rec.Recipient,
		Timestamp: d.avroTimestamp(rec.Timestamp),
		Metadata:  derefMap(rec.Metadata),
	}, nil
}

func (d *Decoder) mapWeatherAlert(schema avro.Schema, body []byte) (*events.NotificationMessage, error) {
	var rec avroWeatherAlert
	if err := avro.Unmarshal(schema, body, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", WeatherAlertName, err)
	}
	return &events.NotificationMessage{
		MessageID: d.fallbackID(rec.MessageID),
		Subject:   rec.Subject,
		Body:      rec.Body,
		Recipient: rec.Recipient,
		Timestamp: d.avroTimestamp(rec.Timestamp),
		Metadata:  derefMap(rec.Metadata),
		WeatherData: &events.WeatherAlertData{
			AlertType: events.ParseAlertType(rec.AlertType),
			Severity:  events.ParseSeverity(rec.Severity),
			Location: events.Location{
				ZipCode:   rec.Location.ZipCode,
				City:      rec.Location.City,
				State:     rec.Location.State,
				Latitude:  rec.Location.Latitude,
				Longitude: rec.Location.Longitude,
			},
			Conditions: events.WeatherConditions{
				CurrentTemperature: rec.WeatherConditions.CurrentTemperature,
				WeatherCode:        rec.WeatherConditions.WeatherCode,
				WeatherDescription: rec.WeatherConditions.WeatherDescription,
				WindSpeed:          rec.WeatherConditions.WindSpeed,
				Precipitation:      rec.WeatherConditions.Precipitation,
			},
		},
	}, nil
}

func (d *Decoder) avroTimestamp(v any) time.Time {
	switch ts := v.(type) {
	case time.Time:
		return ts.UTC()
	case int64:
		return time.UnixMilli(ts).UTC()
	case int32:
		return time.UnixMilli(int64(ts)).UTC()
	case int:
		return time.UnixMilli(int64(ts)).UTC()
	default:
		return d.nowUTC()
	}
}

func derefMap(m *map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return *m
}
