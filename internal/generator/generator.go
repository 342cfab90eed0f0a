// Package generator builds sample notification messages with weighted
// distributions. A non-zero seed makes the output reproducible.
package generator

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// Default distributions.
const (
	DefaultSeverityDist  = "INFO:40,WARNING:30,SEVERE:20,CRITICAL:10"
	DefaultAlertTypeDist = "SEVERE_WEATHER:20,TEMPERATURE_EXTREME:20,PRECIPITATION_HEAVY:20,WIND_WARNING:20,STORM_WARNING:15,GENERAL_ALERT:5"
)

// Config controls message generation.
type Config struct {
	Seed       int64
	Recipients []string
	// WeatherPercent is the share of messages carrying weather data (0-100).
	WeatherPercent int
	SeverityDist   string
	AlertTypeDist  string
	// From, when set, is added as metadata on every message.
	From string
}

type weightedValue struct {
	value  string
	weight int
}

type place struct {
	zip, city, state string
	lat, lon         float64
}

var places = []place{
	{"10001", "New York", "NY", 40.7506, -73.9972},
	{"33101", "Miami", "FL", 25.7743, -80.1937},
	{"60601", "Chicago", "IL", 41.8858, -87.6181},
	{"73301", "Austin", "TX", 30.2672, -97.7431},
	{"98101", "Seattle", "WA", 47.6101, -122.3344},
}

var descriptions = []string{"Clear sky", "Overcast", "Heavy rain", "Thunderstorm", "Snow", "Fog"}

// Generator creates messages according to configured distributions.
type Generator struct {
	rng        *rand.Rand
	recipients []string
	weatherPct int
	from       string
	severity   []weightedValue
	alertType  []weightedValue
}

// New creates a generator. Distributions default when empty.
func New(cfg Config) (*Generator, error) {
	if len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("recipients cannot be empty")
	}
	if cfg.WeatherPercent < 0 || cfg.WeatherPercent > 100 {
		return nil, fmt.Errorf("weather percent must be 0-100, got %d", cfg.WeatherPercent)
	}
	if cfg.SeverityDist == "" {
		cfg.SeverityDist = DefaultSeverityDist
	}
	if cfg.AlertTypeDist == "" {
		cfg.AlertTypeDist = DefaultAlertTypeDist
	}

	severity, err := parseWeightedDistribution(cfg.SeverityDist)
	if err != nil {
		return nil, fmt.Errorf("invalid severity distribution: %w", err)
	}
	alertType, err := parseWeightedDistribution(cfg.AlertTypeDist)
	if err != nil {
		return nil, fmt.Errorf("invalid alert type distribution: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		rng:        rand.New(rand.NewSource(seed)),
		recipients: cfg.Recipients,
		weatherPct: cfg.WeatherPercent,
		from:       cfg.From,
		severity:   severity,
		alertType:  alertType,
	}, nil
}

// ParseDistribution parses "KEY:PERCENT,..." into a map. Percentages must sum to 100.
func ParseDistribution(dist string) (map[string]int, error) {
	if strings.TrimSpace(dist) == "" {
		return nil, fmt.Errorf("distribution string cannot be empty")
	}

	result := make(map[string]int)
	total := 0
	for _, part := range strings.Split(dist, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.Split(part, ":")
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid distribution format: %s (expected KEY:PERCENT)", part)
		}
		var percent int
		if _, err := fmt.Sscanf(strings.TrimSpace(kv[1]), "%d", &percent); err != nil {
			return nil, fmt.Errorf("invalid percentage in %s: %w", part, err)
		}
		if percent < 0 || percent > 100 {
			return nil, fmt.Errorf("percentage must be 0-100, got %d in %s", percent, part)
		}
		result[strings.TrimSpace(kv[0])] = percent
		total += percent
	}

	if total != 100 {
		return nil, fmt.Errorf("distribution percentages must sum to 100, got %d", total)
	}
	return result, nil
}

// parseWeightedDistribution returns the distribution sorted by key so a
// seeded generator is reproducible.
func parseWeightedDistribution(dist string) ([]weightedValue, error) {
	m, err := ParseDistribution(dist)
	if err != nil {
		return nil, err
	}
	out := make([]weightedValue, 0, len(m))
	for v, w := range m {
		out = append(out, weightedValue{value: v, weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].value < out[j].value })
	return out, nil
}

// Generate creates one message stamped with now.
func (g *Generator) Generate(now time.Time) *events.NotificationMessage {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		id = uuid.New()
	}

	msg := &events.NotificationMessage{
		MessageID: id.String(),
		Recipient: g.selectFrom(g.recipients),
		Timestamp: now.UTC(),
	}
	if g.from != "" {
		msg.Metadata = map[string]string{"from": g.from}
	}

	if g.rng.Intn(100) >= g.weatherPct {
		msg.Subject = "Service update"
		msg.Body = fmt.Sprintf("Sample notification %s generated at %s.", msg.MessageID[:8], msg.Timestamp.Format(time.RFC3339))
		return msg
	}

	p := places[g.rng.Intn(len(places))]
	alertType := events.ParseAlertType(g.selectWeighted(g.alertType))
	severity := events.ParseSeverity(g.selectWeighted(g.severity))

	temp := round1(-20 + g.rng.Float64()*65)
	wind := round1(g.rng.Float64() * 150)
	precip := 0.0
	if g.rng.Intn(2) == 0 {
		precip = round1(g.rng.Float64() * 80)
	}
	code := g.rng.Intn(100)
	desc := g.selectFrom(descriptions)
	lat, lon := p.lat, p.lon
	city, state := p.city, p.state

	msg.Subject = fmt.Sprintf("%s for %s", alertType.Label(), p.city)
	msg.WeatherData = &events.WeatherAlertData{
		AlertType: alertType,
		Severity:  severity,
		Location: events.Location{
			ZipCode:   p.zip,
			City:      &city,
			State:     &state,
			Latitude:  &lat,
			Longitude: &lon,
		},
		Conditions: events.WeatherConditions{
			CurrentTemperature: &temp,
			WeatherCode:        &code,
			WeatherDescription: &desc,
			WindSpeed:          &wind,
			Precipitation:      &precip,
		},
	}
	return msg
}

// selectWeighted selects a value using cumulative weights.
func (g *Generator) selectWeighted(choices []weightedValue) string {
	total := 0
	for _, c := range choices {
		total += c.weight
	}
	if total == 0 {
		return choices[len(choices)-1].value
	}

	r := g.rng.Intn(total)
	cumulative := 0
	for _, c := range choices {
		cumulative += c.weight
		if r < cumulative {
			return c.value
		}
	}
	return choices[len(choices)-1].value
}

func (g *Generator) selectFrom(choices []string) string {
	return choices[g.rng.Intn(len(choices))]
}

func round1(v float64) float64 {
	return float64(int(v*10)) / 10
}
