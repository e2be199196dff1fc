package models

import (
	"testing"
	"time"
)

func weatherAt(city string, ts time.Time, temp float64) WeatherReading {
	return WeatherReading{City: city, Temperature: temp, Timestamp: ts}
}

// TestLatestPerCity_MaxTimestamp verifies that the reduction keeps the reading
// with the maximum timestamp for each city and returns at most one row per city.
func TestLatestPerCity_MaxTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []WeatherReading{
		weatherAt("Dubai", base.Add(2*time.Minute), 41),
		weatherAt("Dubai", base, 39),
		weatherAt("Sharjah", base.Add(time.Minute), 38),
		weatherAt("Dubai", base.Add(time.Minute), 40),
	}

	got := LatestPerCity(rows, []string{"Dubai", "Sharjah"})
	if len(got) != 2 {
		t.Fatalf("LatestPerCity() returned %d cities, want 2", len(got))
	}
	if got["Dubai"].Temperature != 41 {
		t.Errorf("Dubai latest temperature = %v, want 41", got["Dubai"].Temperature)
	}
	if got["Sharjah"].Temperature != 38 {
		t.Errorf("Sharjah latest temperature = %v, want 38", got["Sharjah"].Temperature)
	}
}

// TestLatestPerCity_IgnoresUnknownCities verifies that rows for cities outside
// the tracked set are dropped and absent cities are simply missing from the map.
func TestLatestPerCity_IgnoresUnknownCities(t *testing.T) {
	now := time.Now()
	rows := []WeatherReading{
		weatherAt("Atlantis", now, 20),
		weatherAt("Ajman", now, 35),
	}

	got := LatestPerCity(rows, []string{"Ajman", "Dubai"})
	if len(got) != 1 {
		t.Fatalf("LatestPerCity() returned %d cities, want 1", len(got))
	}
	if _, ok := got["Atlantis"]; ok {
		t.Error("untracked city present in projection")
	}
	if _, ok := got["Dubai"]; ok {
		t.Error("city with no rows present in projection")
	}
}

// TestLatestPerCity_TieBreak verifies the documented tie-break: with equal
// timestamps the row appearing earlier in the input wins.
func TestLatestPerCity_TieBreak(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []WeatherReading{
		weatherAt("Dubai", ts, 41),
		weatherAt("Dubai", ts, 39),
	}

	got := LatestPerCity(rows, []string{"Dubai"})
	if got["Dubai"].Temperature != 41 {
		t.Errorf("tie-break picked temperature %v, want 41 (first in input)", got["Dubai"].Temperature)
	}
}

// TestLatestPerCity_Empty verifies that an empty input yields an empty map.
func TestLatestPerCity_Empty(t *testing.T) {
	got := LatestPerCity[WeatherReading](nil, []string{"Dubai"})
	if len(got) != 0 {
		t.Errorf("LatestPerCity(nil) = %v, want empty", got)
	}
}

// TestVisibilityKm verifies the missing-visibility default of 10 km.
func TestVisibilityKm(t *testing.T) {
	r := WeatherReading{City: "Dubai"}
	if got := r.VisibilityKm(); got != 10 {
		t.Errorf("VisibilityKm() with nil visibility = %v, want 10", got)
	}
	v := 3.5
	r.Visibility = &v
	if got := r.VisibilityKm(); got != 3.5 {
		t.Errorf("VisibilityKm() = %v, want 3.5", got)
	}
}
