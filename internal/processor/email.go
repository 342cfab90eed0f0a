package processor

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// BuildEmailRequest turns a validated message into an email request.
// An empty body with weather data is replaced by a synthesized HTML alert.
func BuildEmailRequest(msg *events.NotificationMessage) *events.EmailRequest {
	req := &events.EmailRequest{
		To:      strings.TrimSpace(msg.Recipient),
		Subject: msg.Subject,
		Body:    msg.Body,
		From:    msg.MetadataValue("from"),
		IsHTML:  strings.EqualFold(msg.MetadataValue("isHtml", "is_html"), "true"),
	}

	if strings.TrimSpace(msg.Body) == "" && msg.HasWeatherData() {
		req.Body = RenderWeatherAlert(msg.Subject, req.To, msg.WeatherData)
		req.IsHTML = true
	}
	return req
}

type conditionLine struct {
	Label string
	Value string
}

type weatherView struct {
	Color      string
	AlertLabel string
	Severity   string
	Subject    string
	Recipient  string
	Location   string
	Conditions []conditionLine
}

var weatherTemplate = template.Must(template.New("weather-alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 0;">
<div style="background-color: {{.Color}}; color: #ffffff; padding: 16px;">
<h1 style="margin: 0; font-size: 22px;">{{.AlertLabel}}</h1>
<p style="margin: 4px 0 0 0;">Severity: {{.Severity}}</p>
</div>
<div style="padding: 16px;">
<h2 style="margin-top: 0;">{{.Subject}}</h2>
{{- if .Location}}
<p><strong>Location:</strong> {{.Location}}</p>
{{- end}}
{{- if .Conditions}}
<h3>Current Conditions</h3>
<ul>
{{- range .Conditions}}
<li><strong>{{.Label}}:</strong> {{.Value}}</li>
{{- end}}
</ul>
{{- end}}
</div>
<div style="padding: 16px; font-size: 12px; color: #6c757d;">
<p>This alert was sent to {{.Recipient}}.</p>
</div>
</body>
</html>
`))

// RenderWeatherAlert builds the HTML body for a weather alert.
// Output depends only on its arguments.
func RenderWeatherAlert(subject, recipient string, data *events.WeatherAlertData) string {
	view := weatherView{
		Color:      data.Severity.Color(),
		AlertLabel: data.AlertType.Label(),
		Severity:   string(data.Severity),
		Subject:    subject,
		Recipient:  recipient,
		Location:   formatLocation(data.Location),
		Conditions: formatConditions(data.Conditions),
	}

	var buf bytes.Buffer
	if err := weatherTemplate.Execute(&buf, view); err != nil {
		// Not reachable with a bytes.Buffer writer.
		return fmt.Sprintf("%s\n\n%s alert for %s", subject, view.AlertLabel, view.Location)
	}
	return buf.String()
}

func formatLocation(loc events.Location) string {
	var parts []string
	if loc.City != nil && *loc.City != "" {
		parts = append(parts, *loc.City)
	}
	if loc.State != nil && *loc.State != "" {
		parts = append(parts, *loc.State)
	}
	if loc.ZipCode != "" {
		parts = append(parts, loc.ZipCode)
	}
	return strings.Join(parts, ", ")
}

func formatConditions(c events.WeatherConditions) []conditionLine {
	var lines []conditionLine
	if c.CurrentTemperature != nil {
		celsius := *c.CurrentTemperature
		lines = append(lines, conditionLine{
			Label: "Temperature",
			Value: fmt.Sprintf("%.1f°C (%.1f°F)", celsius, celsius*9/5+32),
		})
	}
	if c.WeatherDescription != nil && *c.WeatherDescription != "" {
		lines = append(lines, conditionLine{Label: "Conditions", Value: *c.WeatherDescription})
	}
	if c.WindSpeed != nil {
		kmh := *c.WindSpeed
		lines = append(lines, conditionLine{
			Label: "Wind Speed",
			Value: fmt.Sprintf("%.1f km/h (%.1f mph)", kmh, kmh*0.621371),
		})
	}
	if c.Precipitation != nil && *c.Precipitation > 0 {
		lines = append(lines, conditionLine{
			Label: "Precipitation",
			Value: fmt.Sprintf("%.1f mm", *c.Precipitation),
		})
	}
	return lines
}
