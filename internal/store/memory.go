package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/health"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/observability"
)

// Memory is the in-process row-store backend: the default when no postgres
// DSN is configured, and the backend the test suites run against. Rows are
// append-only; inserts assign a uuid and timestamp when absent and fan out a
// change event to subscribers.
type Memory struct {
	weather   *memTable[models.WeatherReading]
	traffic   *memTable[models.TrafficReading]
	resource  *memTable[models.ResourceReading]
	transport *memTable[models.TransportReading]

	mu          sync.RWMutex
	unavailable bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{}
	m.weather = newMemTable(m, TableWeather, func(r models.WeatherReading, id string, ts time.Time) models.WeatherReading {
		if r.ID == "" {
			r.ID = id
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = ts
		}
		return r
	})
	m.traffic = newMemTable(m, TableTraffic, func(r models.TrafficReading, id string, ts time.Time) models.TrafficReading {
		if r.ID == "" {
			r.ID = id
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = ts
		}
		return r
	})
	m.resource = newMemTable(m, TableResource, func(r models.ResourceReading, id string, ts time.Time) models.ResourceReading {
		if r.ID == "" {
			r.ID = id
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = ts
		}
		return r
	})
	m.transport = newMemTable(m, TableTransport, func(r models.TransportReading, id string, ts time.Time) models.TransportReading {
		if r.ID == "" {
			r.ID = id
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = ts
		}
		return r
	})
	return m
}

// Weather returns the weather_data table.
func (m *Memory) Weather() TableStore[models.WeatherReading] { return m.weather }

// Traffic returns the traffic_data table.
func (m *Memory) Traffic() TableStore[models.TrafficReading] { return m.traffic }

// Resource returns the resource_data table.
func (m *Memory) Resource() TableStore[models.ResourceReading] { return m.resource }

// Transport returns the transport_data table.
func (m *Memory) Transport() TableStore[models.TransportReading] { return m.transport }

// SetUnavailable makes every query and insert fail with ErrUnavailable while
// set. Test hook for exercising stale-but-available behavior.
func (m *Memory) SetUnavailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = v
}

func (m *Memory) isUnavailable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unavailable
}

// memTable holds the append-only rows and subscribers for one table.
type memTable[T models.Reading] struct {
	parent *Memory
	name   string
	assign func(row T, id string, ts time.Time) T

	mu      sync.Mutex
	rows    []T
	subs    map[int]func(Event)
	nextSub int
}

func newMemTable[T models.Reading](parent *Memory, name string, assign func(T, string, time.Time) T) *memTable[T] {
	return &memTable[T]{
		parent: parent,
		name:   name,
		assign: assign,
		subs:   make(map[int]func(Event)),
	}
}

func (t *memTable[T]) QueryLatest(ctx context.Context, cities []string, limit int) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.parent.isUnavailable() {
		observability.RecordStoreQuery(t.name, "error")
		health.RecordStoreError()
		return nil, fmt.Errorf("%w: query %s", ErrUnavailable, t.name)
	}

	tracked := make(map[string]struct{}, len(cities))
	for _, c := range cities {
		tracked[c] = struct{}{}
	}

	t.mu.Lock()
	matched := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if _, ok := tracked[row.ReadingCity()]; ok {
			matched = append(matched, row)
		}
	}
	t.mu.Unlock()

	// Stable sort keeps insertion order among equal timestamps, which is the
	// documented tie-break for the latest-per-city reduction.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ReadingTime().After(matched[j].ReadingTime())
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	observability.RecordStoreQuery(t.name, "success")
	health.RecordStoreSuccess()
	return matched, nil
}

func (t *memTable[T]) Insert(ctx context.Context, rows []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.parent.isUnavailable() {
		observability.RecordStoreInsert(t.name, "error")
		health.RecordStoreError()
		return fmt.Errorf("%w: insert %s", ErrUnavailable, t.name)
	}
	for _, row := range rows {
		if row.ReadingCity() == "" {
			observability.RecordStoreInsert(t.name, "error")
			return fmt.Errorf("%w: insert %s: row missing city", ErrConstraint, t.name)
		}
	}

	now := time.Now().UTC()
	t.mu.Lock()
	for _, row := range rows {
		t.rows = append(t.rows, t.assign(row, uuid.NewString(), now))
	}
	subs := make([]func(Event), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	observability.RecordStoreInsert(t.name, "success")
	health.RecordStoreSuccess()

	ev := Event{Table: t.name, Op: OpInsert}
	for _, fn := range subs {
		go fn(ev)
	}
	return nil
}

func (t *memTable[T]) Subscribe(fn func(Event)) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	return &memSubscription[T]{table: t, id: id}, nil
}

type memSubscription[T models.Reading] struct {
	table *memTable[T]
	once  sync.Once
	id    int
}

func (s *memSubscription[T]) Cancel() {
	s.once.Do(func() {
		s.table.mu.Lock()
		delete(s.table.subs, s.id)
		s.table.mu.Unlock()
	})
}
