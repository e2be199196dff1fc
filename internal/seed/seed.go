package seed

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/store"
)

var (
	busLines   = []string{"11", "32", "67", "E100", "E400"}
	trainLines = []string{"Red Line", "Green Line", "Blue Line"}

	// Only the larger cities have a metro.
	metroCities = map[string]bool{"Dubai": true, "Abu Dhabi": true, "Sharjah": true}

	crowdingLevels = []models.Crowding{models.CrowdingLow, models.CrowdingModerate, models.CrowdingHigh}
)

// Counts reports how many rows a populate pass inserted per table.
type Counts struct {
	Weather   int `json:"weather"`
	Traffic   int `json:"traffic"`
	Resources int `json:"resources"`
	Transport int `json:"transport"`
}

// Populator writes demo rows so a fresh deployment has something to show
// before the first ingest cycle lands.
type Populator struct {
	weather   store.TableStore[models.WeatherReading]
	traffic   store.TableStore[models.TrafficReading]
	resources store.TableStore[models.ResourceReading]
	transport store.TableStore[models.TransportReading]
	cities    []string
	logger    *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPopulator creates a Populator over the four tables.
func NewPopulator(
	weather store.TableStore[models.WeatherReading],
	traffic store.TableStore[models.TrafficReading],
	resources store.TableStore[models.ResourceReading],
	transport store.TableStore[models.TransportReading],
	cities []string,
	logger *zap.Logger,
) *Populator {
	return &Populator{
		weather:   weather,
		traffic:   traffic,
		resources: resources,
		transport: transport,
		cities:    cities,
		logger:    logger,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// HasData reports whether any weather row exists. Used as the seed guard so a
// stray click does not pile demo rows onto live data.
func (p *Populator) HasData(ctx context.Context) (bool, error) {
	rows, err := p.weather.QueryLatest(ctx, p.cities, 1)
	if err != nil {
		return false, fmt.Errorf("probe weather: %w", err)
	}
	return len(rows) > 0, nil
}

// PopulateAll runs both populate passes and returns the combined counts.
func (p *Populator) PopulateAll(ctx context.Context) (Counts, error) {
	sample, err := p.PopulateSample(ctx)
	if err != nil {
		return Counts{}, err
	}
	mock, err := p.PopulateMock(ctx)
	if err != nil {
		return sample, err
	}

	total := Counts{
		Weather:   sample.Weather,
		Traffic:   sample.Traffic,
		Resources: mock.Resources,
		Transport: mock.Transport,
	}
	p.logger.Info("seeding completed",
		zap.Int("weather", total.Weather),
		zap.Int("traffic", total.Traffic),
		zap.Int("resources", total.Resources),
		zap.Int("transport", total.Transport))
	return total, nil
}

// PopulateSample writes one weather and one traffic row per city with values
// in dashboard-plausible ranges.
func (p *Populator) PopulateSample(ctx context.Context) (Counts, error) {
	p.mu.Lock()
	weather := make([]models.WeatherReading, 0, len(p.cities))
	traffic := make([]models.TrafficReading, 0, len(p.cities))
	for _, cityName := range p.cities {
		weather = append(weather, models.WeatherReading{
			City:        cityName,
			Temperature: 25 + p.rnd.Float64()*20,
			Humidity:    40 + p.rnd.Float64()*40,
			WindSpeed:   5 + p.rnd.Float64()*25,
			AirQuality:  30 + p.rnd.Float64()*120,
			UVIndex:     5 + p.rnd.Float64()*8,
			Rainfall:    p.rnd.Float64() * 5,
		})

		level := p.rnd.Intn(3)
		buckets := []models.Congestion{models.CongestionSmooth, models.CongestionModerate, models.CongestionHeavy}
		alerts := []string{"smooth", "moderate", "heavy"}
		traffic = append(traffic, models.TrafficReading{
			City:            cityName,
			CongestionLevel: buckets[level],
			AvgSpeed:        40 + p.rnd.Float64()*80,
			AlertStatus:     alerts[level],
			RouteName:       "Main Highway - " + cityName,
			DelayMinutes:    level*15 + p.rnd.Intn(15),
		})
	}
	p.mu.Unlock()

	if err := p.weather.Insert(ctx, weather); err != nil {
		return Counts{}, fmt.Errorf("seed weather: %w", err)
	}
	if err := p.traffic.Insert(ctx, traffic); err != nil {
		return Counts{Weather: len(weather)}, fmt.Errorf("seed traffic: %w", err)
	}
	return Counts{Weather: len(weather), Traffic: len(traffic)}, nil
}

// PopulateMock writes resource usage for every city, bus status for every
// city, and metro status for the cities that have one.
func (p *Populator) PopulateMock(ctx context.Context) (Counts, error) {
	p.mu.Lock()
	resources := make([]models.ResourceReading, 0, len(p.cities))
	var transport []models.TransportReading
	for _, cityName := range p.cities {
		resources = append(resources, models.ResourceReading{
			City:             cityName,
			ElectricityUsage: float64(200 + p.rnd.Intn(500)),
			WaterUsage:       float64(100 + p.rnd.Intn(300)),
		})

		for _, line := range busLines {
			transport = append(transport, models.TransportReading{
				City:              cityName,
				Mode:              models.ModeBus,
				LineNumber:        line,
				RouteName:         cityName + " - " + line,
				PredictedCrowding: crowdingLevels[p.rnd.Intn(len(crowdingLevels))],
				DelayMinutes:      p.rnd.Intn(15),
			})
		}

		if metroCities[cityName] {
			for _, line := range trainLines {
				transport = append(transport, models.TransportReading{
					City:              cityName,
					Mode:              models.ModeTrain,
					LineNumber:        line,
					RouteName:         cityName + " Metro - " + line,
					PredictedCrowding: crowdingLevels[p.rnd.Intn(len(crowdingLevels))],
					DelayMinutes:      p.rnd.Intn(10),
				})
			}
		}
	}
	p.mu.Unlock()

	if err := p.resources.Insert(ctx, resources); err != nil {
		return Counts{}, fmt.Errorf("seed resources: %w", err)
	}
	if err := p.transport.Insert(ctx, transport); err != nil {
		return Counts{Resources: len(resources)}, fmt.Errorf("seed transport: %w", err)
	}
	return Counts{Resources: len(resources), Transport: len(transport)}, nil
}
