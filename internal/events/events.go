// Package events defines the canonical notification message decoded from the
// bus, the durable delivery record, and the outbound email request.
package events

import (
	"strings"
	"time"
)

// NotificationMessage is the normalized form every inbound payload decodes to.
// Metadata is nil when the payload carried none.
type NotificationMessage struct {
	MessageID   string
	Topic       string
	Subject     string
	Body        string
	Recipient   string
	Timestamp   time.Time
	Metadata    map[string]string
	WeatherData *WeatherAlertData
}

// HasWeatherData reports whether the message carries a weather alert.
func (m *NotificationMessage) HasWeatherData() bool {
	return m.WeatherData != nil
}

// MetadataValue returns the first non-empty metadata value among keys.
func (m *NotificationMessage) MetadataValue(keys ...string) string {
	for _, k := range keys {
		if v := m.Metadata[k]; v != "" {
			return v
		}
	}
	return ""
}

// AlertType classifies a weather alert. Values are the wire names.
type AlertType string

const (
	AlertSevereWeather      AlertType = "SEVERE_WEATHER"
	AlertTemperatureExtreme AlertType = "TEMPERATURE_EXTREME"
	AlertPrecipitationHeavy AlertType = "PRECIPITATION_HEAVY"
	AlertWindWarning        AlertType = "WIND_WARNING"
	AlertStormWarning       AlertType = "STORM_WARNING"
	AlertGeneral            AlertType = "GENERAL_ALERT"
)

// ParseAlertType maps a wire name to an AlertType. Unknown names become AlertGeneral.
func ParseAlertType(s string) AlertType {
	switch t := AlertType(strings.ToUpper(strings.TrimSpace(s))); t {
	case AlertSevereWeather, AlertTemperatureExtreme, AlertPrecipitationHeavy,
		AlertWindWarning, AlertStormWarning, AlertGeneral:
		return t
	default:
		return AlertGeneral
	}
}

// Label is the human-readable form used in email headers.
func (t AlertType) Label() string {
	switch t {
	case AlertSevereWeather:
		return "Severe Weather"
	case AlertTemperatureExtreme:
		return "Temperature Extreme"
	case AlertPrecipitationHeavy:
		return "Heavy Precipitation"
	case AlertWindWarning:
		return "Wind Warning"
	case AlertStormWarning:
		return "Storm Warning"
	default:
		return "Weather Alert"
	}
}

// Severity ranks a weather alert.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeveritySevere   Severity = "SEVERE"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity maps a wire name to a Severity. Unknown names become SeverityInfo.
func ParseSeverity(s string) Severity {
	switch v := Severity(strings.ToUpper(strings.TrimSpace(s))); v {
	case SeverityInfo, SeverityWarning, SeveritySevere, SeverityCritical:
		return v
	default:
		return SeverityInfo
	}
}

// Color is the header color for emails of this severity.
func (s Severity) Color() string {
	switch s {
	case SeverityWarning:
		return "#ffc107"
	case SeveritySevere:
		return "#fd7e14"
	case SeverityCritical:
		return "#dc3545"
	default:
		return "#17a2b8"
	}
}

// WeatherAlertData is the weather-specific part of a message.
type WeatherAlertData struct {
	AlertType  AlertType
	Severity   Severity
	Location   Location
	Conditions WeatherConditions
}

// Location identifies where an alert applies. Only ZipCode is required.
type Location struct {
	ZipCode   string
	City      *string
	State     *string
	Latitude  *float64
	Longitude *float64
}

// WeatherConditions are the observed values at alert time.
// Temperature is Celsius, wind speed km/h, precipitation mm.
type WeatherConditions struct {
	CurrentTemperature *float64
	WeatherCode        *int
	WeatherDescription *string
	WindSpeed          *float64
	Precipitation      *float64
}

// EmailRequest is a single outbound email.
type EmailRequest struct {
	To      string
	Subject string
	Body    string
	From    string
	IsHTML  bool
}
