package derive

import (
	"math/rand"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
)

// Visibility thresholds in km separating the congestion buckets.
const (
	smoothAboveKm   = 8.0
	moderateAboveKm = 4.0
)

// FromWeather maps the latest weather per city to one synthetic traffic row
// per city, in the given city order. Cities without a weather row are skipped.
// Randomness is injected so runs are reproducible under test.
//
// Buckets by visibility v (km, missing behaves as 10):
//
//	v > 8:      Smooth,   speed 80 + [0,20), delay 0
//	4 < v <= 8: Moderate, speed 50 + [0,20), delay [0,15)
//	v <= 4:     Heavy,    speed 20 + [0,20), delay 10 + [0,30)
func FromWeather(latest map[string]models.WeatherReading, order []string, rnd *rand.Rand) []models.TrafficReading {
	rows := make([]models.TrafficReading, 0, len(order))
	for _, cityName := range order {
		w, ok := latest[cityName]
		if !ok {
			continue
		}

		var (
			level models.Congestion
			speed float64
			delay int
		)
		switch v := w.VisibilityKm(); {
		case v > smoothAboveKm:
			level = models.CongestionSmooth
			speed = 80 + rnd.Float64()*20
			delay = 0
		case v > moderateAboveKm:
			level = models.CongestionModerate
			speed = 50 + rnd.Float64()*20
			delay = rnd.Intn(15)
		default:
			level = models.CongestionHeavy
			speed = 20 + rnd.Float64()*20
			delay = 10 + rnd.Intn(30)
		}

		rows = append(rows, models.TrafficReading{
			City:            cityName,
			CongestionLevel: level,
			AvgSpeed:        speed,
			AlertStatus:     alertStatus(level),
			RouteName:       "Main Route " + cityName,
			DelayMinutes:    delay,
		})
	}
	return rows
}

// alertStatus is the lowercase congestion level, matching what the dashboard
// renders as a badge.
func alertStatus(level models.Congestion) string {
	switch level {
	case models.CongestionSmooth:
		return "smooth"
	case models.CongestionModerate:
		return "moderate"
	default:
		return "heavy"
	}
}
