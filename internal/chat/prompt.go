package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/trend"
)

// personality is the fixed system instruction for the assistant. The live data
// block is appended per request so every answer is grounded in current rows.
const personality = `You are ClimaBot, an AI assistant for the ClimaMind UAE Smart City Dashboard.
You help users understand weather, traffic, resource usage, and public transport patterns in UAE cities (Dubai, Abu Dhabi, Sharjah, Ajman, Ras Al Khaimah).

Your personality: Smart, quick, concise, and slightly friendly.

You can answer questions about:
- Weather conditions (temperature, humidity, air quality, UV index, rainfall, visibility)
- Traffic conditions (congestion levels based on visibility and weather)
- Resource planning (electricity and water usage trends, peak hours)
- Public transport (bus and metro schedules, crowding levels, optimal routes)
- Predictions and trends based on real-time and historical data
- Best times to travel, do outdoor activities, or reduce resource consumption

Key insights to share:
- Traffic is derived from visibility: >8km = Smooth, 4-8km = Moderate, <4km = Heavy
- Peak electricity usage is typically 5-7 PM, recommend AC reduction during these hours
- Suggest alternative transport routes to reduce congestion
- Provide safety recommendations based on weather conditions

Keep responses brief and actionable.`

// BuildSystemPrompt renders the personality plus a live-data context block
// from the latest weather per city and the current trend predictions. Order
// follows the registry city order so prompts are stable across requests.
func BuildSystemPrompt(latest map[string]models.WeatherReading, predictions map[string]trend.Prediction, cityOrder []string) string {
	var b strings.Builder
	b.WriteString(personality)

	if len(latest) == 0 {
		b.WriteString("\n\nNo live readings are available right now; say so when asked about current conditions.")
		return b.String()
	}

	b.WriteString("\n\nCurrent conditions:\n")
	for _, cityName := range orderedCities(latest, cityOrder) {
		w := latest[cityName]
		fmt.Fprintf(&b, "- %s: %.1f°C, humidity %.0f%%, wind %.1f km/h, visibility %.1f km, AQI %.0f, UV %.1f, rainfall %.1f mm\n",
			cityName, w.Temperature, w.Humidity, w.WindSpeed, w.VisibilityKm(), w.AirQuality, w.UVIndex, w.Rainfall)
	}

	if len(predictions) > 0 {
		b.WriteString("\nShort-term outlook:\n")
		for _, cityName := range orderedCities(latest, cityOrder) {
			p, ok := predictions[cityName]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %s: temperature %s (%+.1f°C over 2h), humidity %s, rainfall risk %s\n",
				cityName, p.TempTrend, p.TempChange, p.HumidityTrend, p.RainfallRisk)
		}
	}

	return b.String()
}

// orderedCities returns the cities present in latest, in cityOrder first and
// any stragglers alphabetically after.
func orderedCities(latest map[string]models.WeatherReading, cityOrder []string) []string {
	seen := make(map[string]bool, len(latest))
	out := make([]string, 0, len(latest))
	for _, name := range cityOrder {
		if _, ok := latest[name]; ok {
			out = append(out, name)
			seen[name] = true
		}
	}

	var rest []string
	for name := range latest {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
