package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/city"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/store"
)

func newPopulator(m *store.Memory) *Populator {
	return NewPopulator(m.Weather(), m.Traffic(), m.Resource(), m.Transport(), city.Names(), zap.NewNop())
}

// TestPopulateSample verifies the per-city weather and traffic shapes.
func TestPopulateSample(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	counts, err := newPopulator(m).PopulateSample(ctx)
	if err != nil {
		t.Fatalf("PopulateSample() error = %v", err)
	}
	if counts.Weather != 5 || counts.Traffic != 5 {
		t.Errorf("counts = %+v, want 5 weather and 5 traffic", counts)
	}

	weather, _ := m.Weather().QueryLatest(ctx, city.Names(), 0)
	for _, w := range weather {
		if w.Temperature < 25 || w.Temperature >= 45 {
			t.Errorf("Temperature[%s] = %v, want in [25,45)", w.City, w.Temperature)
		}
		if w.Humidity < 40 || w.Humidity >= 80 {
			t.Errorf("Humidity[%s] = %v, want in [40,80)", w.City, w.Humidity)
		}
	}

	traffic, _ := m.Traffic().QueryLatest(ctx, city.Names(), 0)
	for _, tr := range traffic {
		if tr.AvgSpeed < 40 || tr.AvgSpeed >= 120 {
			t.Errorf("AvgSpeed[%s] = %v, want in [40,120)", tr.City, tr.AvgSpeed)
		}
		if tr.DelayMinutes < 0 || tr.DelayMinutes >= 45 {
			t.Errorf("DelayMinutes[%s] = %v, want in [0,45)", tr.City, tr.DelayMinutes)
		}
		if !strings.HasPrefix(tr.RouteName, "Main Highway - ") {
			t.Errorf("RouteName[%s] = %q", tr.City, tr.RouteName)
		}
		want := map[models.Congestion]string{
			models.CongestionSmooth:   "smooth",
			models.CongestionModerate: "moderate",
			models.CongestionHeavy:    "heavy",
		}[tr.CongestionLevel]
		if tr.AlertStatus != want {
			t.Errorf("AlertStatus[%s] = %q, want %q to mirror %v", tr.City, tr.AlertStatus, want, tr.CongestionLevel)
		}
	}
}

// TestPopulateMock verifies resource rows per city and the bus/metro line
// layout: five bus lines everywhere, three metro lines in the metro cities.
func TestPopulateMock(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	counts, err := newPopulator(m).PopulateMock(ctx)
	if err != nil {
		t.Fatalf("PopulateMock() error = %v", err)
	}
	if counts.Resources != 5 {
		t.Errorf("Resources = %d, want 5", counts.Resources)
	}
	// 5 cities x 5 bus lines + 3 metro cities x 3 train lines.
	if counts.Transport != 34 {
		t.Errorf("Transport = %d, want 34", counts.Transport)
	}

	resources, _ := m.Resource().QueryLatest(ctx, city.Names(), 0)
	for _, r := range resources {
		if r.ElectricityUsage < 200 || r.ElectricityUsage >= 700 {
			t.Errorf("ElectricityUsage[%s] = %v, want in [200,700)", r.City, r.ElectricityUsage)
		}
		if r.WaterUsage < 100 || r.WaterUsage >= 400 {
			t.Errorf("WaterUsage[%s] = %v, want in [100,400)", r.City, r.WaterUsage)
		}
	}

	transport, _ := m.Transport().QueryLatest(ctx, city.Names(), 0)
	trains := map[string]int{}
	buses := map[string]int{}
	for _, tr := range transport {
		switch tr.Mode {
		case models.ModeTrain:
			trains[tr.City]++
			if tr.DelayMinutes < 0 || tr.DelayMinutes >= 10 {
				t.Errorf("train DelayMinutes[%s] = %v, want in [0,10)", tr.City, tr.DelayMinutes)
			}
		case models.ModeBus:
			buses[tr.City]++
			if tr.DelayMinutes < 0 || tr.DelayMinutes >= 15 {
				t.Errorf("bus DelayMinutes[%s] = %v, want in [0,15)", tr.City, tr.DelayMinutes)
			}
		}
	}
	for _, name := range city.Names() {
		if buses[name] != 5 {
			t.Errorf("bus lines[%s] = %d, want 5", name, buses[name])
		}
	}
	if trains["Dubai"] != 3 || trains["Abu Dhabi"] != 3 || trains["Sharjah"] != 3 {
		t.Errorf("metro lines = %v, want 3 each for Dubai, Abu Dhabi, Sharjah", trains)
	}
	if trains["Ajman"] != 0 || trains["Ras Al Khaimah"] != 0 {
		t.Errorf("metro lines = %v, want none for Ajman and Ras Al Khaimah", trains)
	}
}

// TestHasData verifies the guard flips after the first weather row.
func TestHasData(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	p := newPopulator(m)

	got, err := p.HasData(ctx)
	if err != nil {
		t.Fatalf("HasData() error = %v", err)
	}
	if got {
		t.Error("HasData() = true on empty store")
	}

	if _, err := p.PopulateSample(ctx); err != nil {
		t.Fatalf("PopulateSample() error = %v", err)
	}

	got, err = p.HasData(ctx)
	if err != nil {
		t.Fatalf("HasData() error = %v", err)
	}
	if !got {
		t.Error("HasData() = false after seeding")
	}
}

// TestPopulateAll_StoreUnavailable verifies seeding surfaces a store outage.
func TestPopulateAll_StoreUnavailable(t *testing.T) {
	m := store.NewMemory()
	m.SetUnavailable(true)

	if _, err := newPopulator(m).PopulateAll(context.Background()); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("PopulateAll() error = %v, want ErrUnavailable", err)
	}
}
