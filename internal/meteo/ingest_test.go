package meteo

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/city"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/store"
)

// fakeFetcher returns canned readings or a fixed error.
type fakeFetcher struct {
	readings []models.WeatherReading
	err      error
}

func (f *fakeFetcher) FetchCity(ctx context.Context, c city.City) (models.WeatherReading, error) {
	if f.err != nil {
		return models.WeatherReading{}, f.err
	}
	return f.readings[0], nil
}

func (f *fakeFetcher) FetchAll(ctx context.Context) ([]models.WeatherReading, error) {
	return f.readings, f.err
}

// TestIngestor_Run verifies that a fetch cycle writes every reading through
// the store in one batch.
func TestIngestor_Run(t *testing.T) {
	m := store.NewMemory()
	fetcher := &fakeFetcher{readings: []models.WeatherReading{
		{City: "Dubai", Temperature: 40},
		{City: "Sharjah", Temperature: 38},
	}}

	ing := NewIngestor(fetcher, m.Weather(), zap.NewNop())
	if err := ing.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	rows, err := m.Weather().QueryLatest(context.Background(), []string{"Dubai", "Sharjah"}, 0)
	if err != nil {
		t.Fatalf("QueryLatest() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("store holds %d rows, want 2", len(rows))
	}
}

// TestIngestor_Run_DropsUntrackedCities verifies readings for cities outside
// the tracked set never reach the store.
func TestIngestor_Run_DropsUntrackedCities(t *testing.T) {
	m := store.NewMemory()
	fetcher := &fakeFetcher{readings: []models.WeatherReading{
		{City: "Dubai", Temperature: 40},
		{City: "Cairo", Temperature: 33},
	}}

	ing := NewIngestor(fetcher, m.Weather(), zap.NewNop())
	if err := ing.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	rows, err := m.Weather().QueryLatest(context.Background(), []string{"Dubai", "Cairo"}, 0)
	if err != nil {
		t.Fatalf("QueryLatest() error = %v", err)
	}
	if len(rows) != 1 || rows[0].City != "Dubai" {
		t.Errorf("store rows = %+v, want only the Dubai reading", rows)
	}
}

// TestIngestor_Run_FetchFailure verifies that a total fetch failure is
// returned without writing anything.
func TestIngestor_Run_FetchFailure(t *testing.T) {
	m := store.NewMemory()
	fetcher := &fakeFetcher{err: errors.New("upstream down")}

	ing := NewIngestor(fetcher, m.Weather(), zap.NewNop())
	if err := ing.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want error")
	}

	rows, _ := m.Weather().QueryLatest(context.Background(), []string{"Dubai"}, 0)
	if len(rows) != 0 {
		t.Errorf("store holds %d rows after failed fetch, want 0", len(rows))
	}
}

// TestIngestor_Run_InsertFailure verifies that a store outage surfaces as an
// error for the scheduler to log.
func TestIngestor_Run_InsertFailure(t *testing.T) {
	m := store.NewMemory()
	m.SetUnavailable(true)
	fetcher := &fakeFetcher{readings: []models.WeatherReading{{City: "Dubai"}}}

	ing := NewIngestor(fetcher, m.Weather(), zap.NewNop())
	if err := ing.Run(context.Background()); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Run() error = %v, want ErrUnavailable", err)
	}
}
