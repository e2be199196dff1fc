package syncer

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/city"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/store"
)

func weatherSync(m *store.Memory) *Synchronizer[models.WeatherReading] {
	return New(Config[models.WeatherReading]{
		Table:  store.TableWeather,
		Store:  m.Weather(),
		Cities: city.Names(),
		Limit:  25,
		Logger: zap.NewNop(),
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// TestSynchronizer_InitialFetch verifies Start populates the projection from
// rows already in the store.
func TestSynchronizer_InitialFetch(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	if err := m.Weather().Insert(ctx, []models.WeatherReading{{City: "Dubai", Temperature: 40}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := weatherSync(m)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	p := s.Projection()
	if got := p["Dubai"].Temperature; got != 40 {
		t.Errorf("projection[Dubai].Temperature = %v, want 40", got)
	}
}

// TestSynchronizer_RefetchOnInsert verifies a change notification refreshes
// the projection.
func TestSynchronizer_RefetchOnInsert(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	s := weatherSync(m)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if len(s.Projection()) != 0 {
		t.Fatal("projection not empty before any insert")
	}

	if err := m.Weather().Insert(ctx, []models.WeatherReading{{City: "Sharjah", Temperature: 38}}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		_, ok := s.Projection()["Sharjah"]
		return ok
	})
}

// TestSynchronizer_KeepsProjectionOnRefetchError verifies a failed refetch
// leaves the previous projection visible.
func TestSynchronizer_KeepsProjectionOnRefetchError(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	if err := m.Weather().Insert(ctx, []models.WeatherReading{{City: "Dubai", Temperature: 40}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := weatherSync(m)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	m.SetUnavailable(true)
	s.kick <- struct{}{}

	// The failed refetch must not clear what panels already show.
	time.Sleep(50 * time.Millisecond)
	if got := s.Projection()["Dubai"].Temperature; got != 40 {
		t.Errorf("projection[Dubai].Temperature = %v, want stale 40 after failed refetch", got)
	}
}

// TestSynchronizer_NoMutationAfterStop verifies a queued event delivered
// around Stop cannot change the projection afterwards.
func TestSynchronizer_NoMutationAfterStop(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	s := weatherSync(m)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop()

	if err := m.Weather().Insert(ctx, []models.WeatherReading{{City: "Dubai", Temperature: 45}}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if len(s.Projection()) != 0 {
		t.Errorf("projection mutated after Stop: %+v", s.Projection())
	}
}

// brokenSubscribeStore delegates reads and writes but fails every Subscribe.
type brokenSubscribeStore struct {
	store.TableStore[models.WeatherReading]
}

func (b *brokenSubscribeStore) Subscribe(fn func(store.Event)) (store.Subscription, error) {
	return nil, store.ErrUnavailable
}

// TestSynchronizer_StopAfterFailedStart verifies Stop returns promptly when
// Start failed before the event loop was launched.
func TestSynchronizer_StopAfterFailedStart(t *testing.T) {
	m := store.NewMemory()
	s := New(Config[models.WeatherReading]{
		Table:  store.TableWeather,
		Store:  &brokenSubscribeStore{TableStore: m.Weather()},
		Cities: city.Names(),
		Logger: zap.NewNop(),
	})

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil, want subscribe failure")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop() blocked after a failed Start")
	}
}

// TestSynchronizer_StopIdempotent verifies calling Stop twice is safe.
func TestSynchronizer_StopIdempotent(t *testing.T) {
	m := store.NewMemory()
	s := weatherSync(m)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop()
	s.Stop()
}

// TestSynchronizer_PeriodicJob verifies a configured job runs on its interval.
func TestSynchronizer_PeriodicJob(t *testing.T) {
	m := store.NewMemory()
	ran := make(chan struct{}, 4)

	s := New(Config[models.WeatherReading]{
		Table:  store.TableWeather,
		Store:  m.Weather(),
		Cities: city.Names(),
		Job: func(ctx context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
		JobInterval: 20 * time.Millisecond,
		Logger:      zap.NewNop(),
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}
