package generator

import (
	"testing"
	"time"

	"github.com/Smart-Services-NE/notification-service/internal/events"
	"github.com/Smart-Services-NE/notification-service/internal/processor"
)

var now = time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{Recipients: []string{"a@example.com"}}, false},
		{"no recipients", Config{}, true},
		{"weather percent out of range", Config{Recipients: []string{"a@example.com"}, WeatherPercent: 101}, true},
		{"bad severity dist", Config{Recipients: []string{"a@example.com"}, SeverityDist: "INFO:50"}, true},
		{"bad alert type dist", Config{Recipients: []string{"a@example.com"}, AlertTypeDist: "WIND_WARNING"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDistribution(t *testing.T) {
	tests := []struct {
		name    string
		dist    string
		want    map[string]int
		wantErr bool
	}{
		{"valid", "INFO:60, CRITICAL:40", map[string]int{"INFO": 60, "CRITICAL": 40}, false},
		{"empty", "", nil, true},
		{"missing percent", "INFO", nil, true},
		{"not a number", "INFO:abc", nil, true},
		{"over 100", "INFO:120", nil, true},
		{"does not sum", "INFO:50,SEVERE:30", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDistribution(tt.dist)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDistribution() error = %v, wantErr %v", err, tt.wantErr)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("ParseDistribution()[%s] = %d, want %d", k, got[k], v)
				}
			}
		})
	}
}

func TestGenerator_Generate(t *testing.T) {
	gen, err := New(Config{
		Seed:           42,
		Recipients:     []string{"a@example.com", "b@example.com"},
		WeatherPercent: 100,
		SeverityDist:   "CRITICAL:100",
		AlertTypeDist:  "WIND_WARNING:100",
		From:           "alerts@weather.example",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	msg := gen.Generate(now)
	if msg.MessageID == "" {
		t.Error("MessageID should not be empty")
	}
	if !msg.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", msg.Timestamp, now)
	}
	if msg.Metadata["from"] != "alerts@weather.example" {
		t.Errorf("Metadata[from] = %q", msg.Metadata["from"])
	}
	if !msg.HasWeatherData() {
		t.Fatal("WeatherData should be set at 100%")
	}
	if msg.WeatherData.Severity != events.SeverityCritical {
		t.Errorf("Severity = %s, want CRITICAL", msg.WeatherData.Severity)
	}
	if msg.WeatherData.AlertType != events.AlertWindWarning {
		t.Errorf("AlertType = %s, want WIND_WARNING", msg.WeatherData.AlertType)
	}
	if err := processor.ValidateMessage(msg); err != nil {
		t.Errorf("generated message is not deliverable: %v", err)
	}
}

func TestGenerator_PlainMessages(t *testing.T) {
	gen, err := New(Config{Seed: 7, Recipients: []string{"a@example.com"}, WeatherPercent: 0})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 20; i++ {
		msg := gen.Generate(now)
		if msg.HasWeatherData() {
			t.Fatal("WeatherData should never be set at 0%")
		}
		if err := processor.ValidateMessage(msg); err != nil {
			t.Fatalf("generated message is not deliverable: %v", err)
		}
	}
}

func TestGenerator_SeedIsReproducible(t *testing.T) {
	cfg := Config{Seed: 99, Recipients: []string{"a@example.com", "b@example.com"}, WeatherPercent: 50}
	g1, _ := New(cfg)
	g2, _ := New(cfg)

	for i := 0; i < 10; i++ {
		m1, m2 := g1.Generate(now), g2.Generate(now)
		if m1.MessageID != m2.MessageID || m1.Recipient != m2.Recipient || m1.Subject != m2.Subject {
			t.Fatalf("message %d differs: %+v vs %+v", i, m1, m2)
		}
	}
}

func TestGenerator_SelectWeighted(t *testing.T) {
	gen, _ := New(Config{Seed: 1, Recipients: []string{"a@example.com"}})
	choices := []weightedValue{{value: "A", weight: 50}, {value: "B", weight: 50}}

	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		counts[gen.selectWeighted(choices)]++
	}
	if counts["A"] < 350 || counts["B"] < 350 {
		t.Errorf("selectWeighted() distribution skewed: %v", counts)
	}
}
