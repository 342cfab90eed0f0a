package decoder

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

const (
	defaultSubject  = "Notification"
	rawMessageTitle = "Raw Message"
)

type jsonMessage struct {
	MessageID         *string         `json:"messageId"`
	Subject           *string         `json:"subject"`
	Body              *string         `json:"body"`
	Recipient         *string         `json:"recipient"`
	Timestamp         json.RawMessage `json:"timestamp"`
	Metadata          map[string]any  `json:"metadata"`
	AlertType         *string         `json:"alertType"`
	Severity          *string         `json:"severity"`
	Location          *jsonLocation   `json:"location"`
	WeatherConditions *jsonConditions `json:"weatherConditions"`
}

type jsonLocation struct {
	ZipCode   string   `json:"zipCode"`
	City      *string  `json:"city"`
	State     *string  `json:"state"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type jsonConditions struct {
	CurrentTemperature *float64 `json:"currentTemperature"`
	WeatherCode        *int     `json:"weatherCode"`
	WeatherDescription *string  `json:"weatherDescription"`
	WindSpeed          *float64 `json:"windSpeed"`
	Precipitation      *float64 `json:"precipitation"`
}

func (d *Decoder) decodeJSON(raw []byte) *events.NotificationMessage {
	var in jsonMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		return d.rawMessage(raw)
	}

	msg := &events.NotificationMessage{
		MessageID: d.fallbackID(deref(in.MessageID)),
		Subject:   defaultSubject,
		Body:      deref(in.Body),
		Recipient: deref(in.Recipient),
		Timestamp: d.parseTimestamp(in.Timestamp),
		Metadata:  stringifyMetadata(in.Metadata),
	}
	if in.Subject != nil {
		msg.Subject = *in.Subject
	}

	if in.AlertType != nil || in.Severity != nil {
		wd := &events.WeatherAlertData{
			AlertType: events.ParseAlertType(deref(in.AlertType)),
			Severity:  events.ParseSeverity(deref(in.Severity)),
		}
		if in.Location != nil {
			wd.Location = events.Location{
				ZipCode:   in.Location.ZipCode,
				City:      in.Location.City,
				State:     in.Location.State,
				Latitude:  in.Location.Latitude,
				Longitude: in.Location.Longitude,
			}
		}
		if c := in.WeatherConditions; c != nil {
			wd.Conditions = events.WeatherConditions{
				CurrentTemperature: c.CurrentTemperature,
				WeatherCode:        c.WeatherCode,
				WeatherDescription: c.WeatherDescription,
				WindSpeed:          c.WindSpeed,
				Precipitation:      c.Precipitation,
			}
		}
		msg.WeatherData = wd
	}

	return msg
}

// rawMessage wraps an unparseable payload so it can still be recorded.
func (d *Decoder) rawMessage(raw []byte) *events.NotificationMessage {
	return &events.NotificationMessage{
		MessageID: d.newID(),
		Subject:   rawMessageTitle,
		Body:      string(raw),
		Timestamp: d.nowUTC(),
	}
}

// parseTimestamp accepts epoch milliseconds or an RFC 3339 string.
func (d *Decoder) parseTimestamp(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return d.nowUTC()
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t.UTC()
			}
		}
		return d.nowUTC()
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return d.nowUTC()
	}
	return time.UnixMilli(int64(ms)).UTC()
}

func stringifyMetadata(in map[string]any) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		case bool:
			out[k] = strconv.FormatBool(val)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
