package decoder

import (
	_ "embed"

	"github.com/hamba/avro/v2"
)

// Short names of the Avro records the decoder understands.
const (
	WeatherAlertName        = "WeatherAlert"
	NotificationMessageName = "NotificationMessage"
)

//go:embed schemas/weather_alert.avsc
var weatherAlertAVSC string

//go:embed schemas/notification_message.avsc
var notificationMessageAVSC string

var (
	// WeatherAlertSchema is the embedded weather alert record schema.
	WeatherAlertSchema = avro.MustParse(weatherAlertAVSC)
	// NotificationMessageSchema is the embedded plain notification record schema.
	NotificationMessageSchema = avro.MustParse(notificationMessageAVSC)
)
