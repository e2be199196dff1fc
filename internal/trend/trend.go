package trend

import (
	"math"
	"sort"
	"time"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
)

// Window is the trailing span of weather history considered for a prediction.
const Window = 2 * time.Hour

// Direction of a temperature trend over the window.
type Direction string

const (
	DirectionRising  Direction = "rising"
	DirectionFalling Direction = "falling"
)

// RainfallRisk buckets the rainfall likelihood from current humidity.
type RainfallRisk string

const (
	RiskLow    RainfallRisk = "low"
	RiskMedium RainfallRisk = "medium"
	RiskHigh   RainfallRisk = "high"
)

// Prediction is the short-horizon outlook for one city.
type Prediction struct {
	City           string       `json:"city"`
	TempTrend      Direction    `json:"temp_trend"`
	TempChange     float64      `json:"temp_change"` // degrees over the window, 1 decimal
	HumidityTrend  Direction    `json:"humidity_trend"`
	RainfallRisk   RainfallRisk `json:"rainfall_risk"`
	LatestTemp     float64      `json:"latest_temp"`
	LatestHumidity float64      `json:"latest_humidity"`
}

// Predict computes a per-city outlook from the readings that fall inside the
// trailing window ending at now. Cities with fewer than two in-window readings
// are omitted; the caller renders those as "no prediction yet".
func Predict(rows []models.WeatherReading, now time.Time) map[string]Prediction {
	cutoff := now.Add(-Window)

	byCity := make(map[string][]models.WeatherReading)
	for _, r := range rows {
		if r.Timestamp.Before(cutoff) || r.Timestamp.After(now) {
			continue
		}
		byCity[r.City] = append(byCity[r.City], r)
	}

	out := make(map[string]Prediction, len(byCity))
	for cityName, readings := range byCity {
		if len(readings) < 2 {
			continue
		}
		sort.SliceStable(readings, func(i, j int) bool {
			return readings[i].Timestamp.Before(readings[j].Timestamp)
		})

		oldest := readings[0]
		newest := readings[len(readings)-1]
		// Direction comes from the raw difference; only an exactly-flat window
		// reads as falling. Rounding applies to the reported figure alone, so a
		// tiny rise does not flip to falling.
		change := newest.Temperature - oldest.Temperature

		out[cityName] = Prediction{
			City:           cityName,
			TempTrend:      direction(change),
			TempChange:     round1(change),
			HumidityTrend:  direction(newest.Humidity - oldest.Humidity),
			RainfallRisk:   rainfallRisk(newest.Humidity),
			LatestTemp:     newest.Temperature,
			LatestHumidity: newest.Humidity,
		}
	}
	return out
}

// direction classifies a change over the window. Zero change reads as
// falling: the dashboard treats "not rising" and "easing off" the same way.
func direction(change float64) Direction {
	if change > 0 {
		return DirectionRising
	}
	return DirectionFalling
}

func rainfallRisk(humidity float64) RainfallRisk {
	switch {
	case humidity > 80:
		return RiskHigh
	case humidity > 60:
		return RiskMedium
	default:
		return RiskLow
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
