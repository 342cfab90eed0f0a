package decoder

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hamba/avro/v2"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

type encNotification struct {
	MessageID string             `avro:"messageId"`
	Subject   string             `avro:"subject"`
	Body      string             `avro:"body"`
	Recipient string             `avro:"recipient"`
	Timestamp time.Time          `avro:"timestamp"`
	Metadata  *map[string]string `avro:"metadata"`
}

type encWeatherAlert struct {
	MessageID         string             `avro:"messageId"`
	Subject           string             `avro:"subject"`
	Body              string             `avro:"body"`
	Recipient         string             `avro:"recipient"`
	Timestamp         time.Time          `avro:"timestamp"`
	AlertType         string             `avro:"alertType"`
	Severity          string             `avro:"severity"`
	Location          avroLocation       `avro:"location"`
	WeatherConditions avroConditions     `avro:"weatherConditions"`
	Metadata          *map[string]string `avro:"metadata"`
}

// SchemaFor returns the embedded schema a message encodes with.
func SchemaFor(msg *events.NotificationMessage) avro.Schema {
	if msg.HasWeatherData() {
		return WeatherAlertSchema
	}
	return NotificationMessageSchema
}

// EncodeAvro serializes msg in the schema-registry wire format under schemaID.
// schemaID must refer to the schema SchemaFor returns.
func EncodeAvro(schemaID int, msg *events.NotificationMessage) ([]byte, error) {
	var v any
	meta := optionalMap(msg.Metadata)
	if wd := msg.WeatherData; wd != nil {
		v = encWeatherAlert{
			MessageID: msg.MessageID,
			Subject:   msg.Subject,
			Body:      msg.Body,
			Recipient: msg.Recipient,
			Timestamp: msg.Timestamp.UTC(),
			AlertType: string(wd.AlertType),
			Severity:  string(wd.Severity),
			Location: avroLocation{
				ZipCode:   wd.Location.ZipCode,
				City:      wd.Location.City,
				State:     wd.Location.State,
				Latitude:  wd.Location.Latitude,
				Longitude: wd.Location.Longitude,
			},
			WeatherConditions: avroConditions{
				CurrentTemperature: wd.Conditions.CurrentTemperature,
				WeatherCode:        wd.Conditions.WeatherCode,
				WeatherDescription: wd.Conditions.WeatherDescription,
				WindSpeed:          wd.Conditions.WindSpeed,
				Precipitation:      wd.Conditions.Precipitation,
			},
			Metadata: meta,
		}
	} else {
		v = encNotification{
			MessageID: msg.MessageID,
			Subject:   msg.Subject,
			Body:      msg.Body,
			Recipient: msg.Recipient,
			Timestamp: msg.Timestamp.UTC(),
			Metadata:  meta,
		}
	}

	body, err := avro.Marshal(SchemaFor(msg), v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.MessageID, err)
	}
	out := make([]byte, wireHeaderLen, wireHeaderLen+len(body))
	out[0] = magicByte
	binary.BigEndian.PutUint32(out[1:], uint32(schemaID))
	return append(out, body...), nil
}

// EncodeJSON serializes msg in the JSON wire format. The timestamp is epoch milliseconds.
func EncodeJSON(msg *events.NotificationMessage) ([]byte, error) {
	out := jsonMessage{
		MessageID: &msg.MessageID,
		Subject:   &msg.Subject,
		Body:      &msg.Body,
		Recipient: &msg.Recipient,
		Timestamp: json.RawMessage(fmt.Sprintf("%d", msg.Timestamp.UnixMilli())),
	}
	if msg.Metadata != nil {
		out.Metadata = make(map[string]any, len(msg.Metadata))
		for k, v := range msg.Metadata {
			out.Metadata[k] = v
		}
	}
	if wd := msg.WeatherData; wd != nil {
		alertType, severity := string(wd.AlertType), string(wd.Severity)
		out.AlertType = &alertType
		out.Severity = &severity
		out.Location = &jsonLocation{
			ZipCode:   wd.Location.ZipCode,
			City:      wd.Location.City,
			State:     wd.Location.State,
			Latitude:  wd.Location.Latitude,
			Longitude: wd.Location.Longitude,
		}
		out.WeatherConditions = &jsonConditions{
			CurrentTemperature: wd.Conditions.CurrentTemperature,
			WeatherCode:        wd.Conditions.WeatherCode,
			WeatherDescription: wd.Conditions.WeatherDescription,
			WindSpeed:          wd.Conditions.WindSpeed,
			Precipitation:      wd.Conditions.Precipitation,
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.MessageID, err)
	}
	return b, nil
}

func optionalMap(m map[string]string) *map[string]string {
	if m == nil {
		return nil
	}
	return &m
}
