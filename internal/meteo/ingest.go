package meteo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/city"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/health"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/store"
)

// Ingestor fetches current conditions for every tracked city and writes them
// through the metric store in one batch. Runs on the weather synchronizer's
// schedule and on demand via the ingest endpoint.
type Ingestor struct {
	fetcher Fetcher
	weather store.TableStore[models.WeatherReading]
	logger  *zap.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(fetcher Fetcher, weather store.TableStore[models.WeatherReading], logger *zap.Logger) *Ingestor {
	return &Ingestor{fetcher: fetcher, weather: weather, logger: logger}
}

// Run performs one fetch-and-store cycle. Partial fetch success still writes
// the cities that succeeded; a total failure is returned for the caller to
// log, never to crash on.
func (i *Ingestor) Run(ctx context.Context) error {
	fetched, err := i.fetcher.FetchAll(ctx)
	if err != nil {
		health.RecordIngestError()
		i.logger.Warn("weather ingestion fetch failed", zap.Error(err))
		return fmt.Errorf("fetch weather: %w", err)
	}

	// Readings for cities outside the tracked set never reach the store.
	readings := make([]models.WeatherReading, 0, len(fetched))
	for _, r := range fetched {
		if !city.IsTracked(r.City) {
			i.logger.Warn("dropping reading for untracked city", zap.String("city", r.City))
			continue
		}
		readings = append(readings, r)
	}

	if err := i.weather.Insert(ctx, readings); err != nil {
		health.RecordIngestError()
		i.logger.Warn("weather ingestion insert failed", zap.Int("readings", len(readings)), zap.Error(err))
		return fmt.Errorf("insert weather: %w", err)
	}

	health.RecordIngestSuccess()
	i.logger.Info("weather ingestion completed", zap.Int("readings", len(readings)))
	return nil
}
