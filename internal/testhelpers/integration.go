//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
)

// PostgresDSN returns the DSN for integration tests against a real postgres.
// Skips the test when POSTGRES_DSN is not set, so the default test run stays
// hermetic.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set, skipping integration test")
	}
	return dsn
}

// MeteoURL returns the forecast endpoint for integration tests that exercise
// the live weather API.
func MeteoURL() string {
	if url := os.Getenv("WEATHER_API_URL"); url != "" {
		return url
	}
	return "https://api.open-meteo.com/v1/forecast"
}
