package derive

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/observability"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/store"
)

// rowsPerCity bounds the weather query so the scan stays cheap regardless of
// how much history has accumulated.
const rowsPerCity = 5

// Generator derives synthetic traffic rows from the most recent weather per
// city and writes them through the traffic store. Runs on the traffic
// synchronizer's schedule.
type Generator struct {
	weather store.TableStore[models.WeatherReading]
	traffic store.TableStore[models.TrafficReading]
	cities  []string
	logger  *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator creates a Generator deriving traffic for the given cities.
func NewGenerator(
	weather store.TableStore[models.WeatherReading],
	traffic store.TableStore[models.TrafficReading],
	cities []string,
	logger *zap.Logger,
) *Generator {
	return &Generator{
		weather: weather,
		traffic: traffic,
		cities:  cities,
		logger:  logger,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run performs one derivation cycle. Cities with no weather on record are
// skipped silently; a cycle with nothing to derive is a success, not an error.
func (g *Generator) Run(ctx context.Context) error {
	rows, err := g.weather.QueryLatest(ctx, g.cities, len(g.cities)*rowsPerCity)
	if err != nil {
		observability.DeriveRunsTotal.WithLabelValues("error").Inc()
		g.logger.Warn("traffic derivation query failed", zap.Error(err))
		return fmt.Errorf("query weather: %w", err)
	}

	latest := models.LatestPerCity(rows, g.cities)
	if len(latest) == 0 {
		observability.DeriveRunsTotal.WithLabelValues("success").Inc()
		g.logger.Debug("traffic derivation skipped, no weather on record")
		return nil
	}

	g.mu.Lock()
	derived := FromWeather(latest, g.cities, g.rnd)
	g.mu.Unlock()

	if err := g.traffic.Insert(ctx, derived); err != nil {
		observability.DeriveRunsTotal.WithLabelValues("error").Inc()
		g.logger.Warn("traffic derivation insert failed", zap.Int("rows", len(derived)), zap.Error(err))
		return fmt.Errorf("insert traffic: %w", err)
	}

	observability.DeriveRunsTotal.WithLabelValues("success").Inc()
	observability.DeriveReadingsTotal.Add(float64(len(derived)))
	g.logger.Info("traffic derivation completed", zap.Int("rows", len(derived)))
	return nil
}
