package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/health"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/observability"
)

// Postgres is the lib/pq row-store backend. Change subscriptions ride on
// LISTEN/NOTIFY: each table has a "<table>_changes" channel fed by row
// triggers (see scripts/schema.sql), with the operation name in the payload.
type Postgres struct {
	db     *sql.DB
	dsn    string
	logger *zap.Logger
}

// NewPostgres opens and pings a postgres connection.
func NewPostgres(dsn string, maxConns, maxIdle int, logger *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return &Postgres{db: db, dsn: dsn, logger: logger}, nil
}

// Close closes the underlying connection pool. Active subscriptions hold
// their own listener connections and must be cancelled separately.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Weather returns the weather_data table.
func (p *Postgres) Weather() TableStore[models.WeatherReading] {
	return &pgTable[models.WeatherReading]{
		p:       p,
		name:    TableWeather,
		columns: []string{"temperature", "humidity", "windspeed", "air_quality", "uv_index", "visibility", "rainfall"},
		scan: func(rows *sql.Rows) (models.WeatherReading, error) {
			var r models.WeatherReading
			err := rows.Scan(&r.ID, &r.City, &r.Temperature, &r.Humidity, &r.WindSpeed,
				&r.AirQuality, &r.UVIndex, &r.Visibility, &r.Rainfall, &r.Timestamp)
			return r, err
		},
		args: func(r models.WeatherReading) []any {
			return []any{r.Temperature, r.Humidity, r.WindSpeed, r.AirQuality, r.UVIndex, r.Visibility, r.Rainfall}
		},
		assign: func(r models.WeatherReading, id string, ts time.Time) models.WeatherReading {
			if r.ID == "" {
				r.ID = id
			}
			if r.Timestamp.IsZero() {
				r.Timestamp = ts
			}
			return r
		},
	}
}

// Traffic returns the traffic_data table.
func (p *Postgres) Traffic() TableStore[models.TrafficReading] {
	return &pgTable[models.TrafficReading]{
		p:       p,
		name:    TableTraffic,
		columns: []string{"congestion_level", "avg_speed", "alert_status", "route_name", "delay_minutes"},
		scan: func(rows *sql.Rows) (models.TrafficReading, error) {
			var r models.TrafficReading
			var route sql.NullString
			err := rows.Scan(&r.ID, &r.City, &r.CongestionLevel, &r.AvgSpeed,
				&r.AlertStatus, &route, &r.DelayMinutes, &r.Timestamp)
			r.RouteName = route.String
			return r, err
		},
		args: func(r models.TrafficReading) []any {
			return []any{string(r.CongestionLevel), r.AvgSpeed, r.AlertStatus, r.RouteName, r.DelayMinutes}
		},
		assign: func(r models.TrafficReading, id string, ts time.Time) models.TrafficReading {
			if r.ID == "" {
				r.ID = id
			}
			if r.Timestamp.IsZero() {
				r.Timestamp = ts
			}
			return r
		},
	}
}

// Resource returns the resource_data table.
func (p *Postgres) Resource() TableStore[models.ResourceReading] {
	return &pgTable[models.ResourceReading]{
		p:       p,
		name:    TableResource,
		columns: []string{"electricity_usage", "water_usage"},
		scan: func(rows *sql.Rows) (models.ResourceReading, error) {
			var r models.ResourceReading
			err := rows.Scan(&r.ID, &r.City, &r.ElectricityUsage, &r.WaterUsage, &r.Timestamp)
			return r, err
		},
		args: func(r models.ResourceReading) []any {
			return []any{r.ElectricityUsage, r.WaterUsage}
		},
		assign: func(r models.ResourceReading, id string, ts time.Time) models.ResourceReading {
			if r.ID == "" {
				r.ID = id
			}
			if r.Timestamp.IsZero() {
				r.Timestamp = ts
			}
			return r
		},
	}
}

// Transport returns the transport_data table.
func (p *Postgres) Transport() TableStore[models.TransportReading] {
	return &pgTable[models.TransportReading]{
		p:       p,
		name:    TableTransport,
		columns: []string{"transport_type", "line_number", "route_name", "predicted_crowding", "delay_minutes"},
		scan: func(rows *sql.Rows) (models.TransportReading, error) {
			var r models.TransportReading
			err := rows.Scan(&r.ID, &r.City, &r.Mode, &r.LineNumber,
				&r.RouteName, &r.PredictedCrowding, &r.DelayMinutes, &r.Timestamp)
			return r, err
		},
		args: func(r models.TransportReading) []any {
			return []any{string(r.Mode), r.LineNumber, r.RouteName, string(r.PredictedCrowding), r.DelayMinutes}
		},
		assign: func(r models.TransportReading, id string, ts time.Time) models.TransportReading {
			if r.ID == "" {
				r.ID = id
			}
			if r.Timestamp.IsZero() {
				r.Timestamp = ts
			}
			return r
		},
	}
}

// pgTable implements TableStore for one postgres table. The column list,
// scanner, and insert-argument builder are injected per table; id, city, and
// timestamp are handled uniformly.
type pgTable[T models.Reading] struct {
	p       *Postgres
	name    string
	columns []string
	scan    func(rows *sql.Rows) (T, error)
	args    func(row T) []any
	assign  func(row T, id string, ts time.Time) T
}

// latestQuery builds the newest-first select for a table. Secondary order by
// id keeps equal timestamps deterministic.
func latestQuery(table string, columns []string, withLimit bool) string {
	q := fmt.Sprintf(
		"SELECT id, city, %s, timestamp FROM %s WHERE city = ANY($1) ORDER BY timestamp DESC, id DESC",
		strings.Join(columns, ", "), table,
	)
	if withLimit {
		q += " LIMIT $2"
	}
	return q
}

// insertQuery builds a multi-row insert with $n placeholders.
func insertQuery(table string, columns []string, rowCount int) string {
	cols := append([]string{"id", "city"}, columns...)
	cols = append(cols, "timestamp")

	values := make([]string, rowCount)
	arg := 1
	for i := 0; i < rowCount; i++ {
		ph := make([]string, len(cols))
		for j := range cols {
			ph[j] = fmt.Sprintf("$%d", arg)
			arg++
		}
		values[i] = "(" + strings.Join(ph, ", ") + ")"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(cols, ", "), strings.Join(values, ", "))
}

func (t *pgTable[T]) QueryLatest(ctx context.Context, cities []string, limit int) ([]T, error) {
	args := []any{pq.Array(cities)}
	if limit > 0 {
		args = append(args, limit)
	}

	rows, err := t.p.db.QueryContext(ctx, latestQuery(t.name, t.columns, limit > 0), args...)
	if err != nil {
		observability.RecordStoreQuery(t.name, "error")
		health.RecordStoreError()
		return nil, mapPGError("query "+t.name, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		r, err := t.scan(rows)
		if err != nil {
			observability.RecordStoreQuery(t.name, "error")
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		observability.RecordStoreQuery(t.name, "error")
		health.RecordStoreError()
		return nil, mapPGError("query "+t.name, err)
	}

	observability.RecordStoreQuery(t.name, "success")
	health.RecordStoreSuccess()
	return out, nil
}

func (t *pgTable[T]) Insert(ctx context.Context, rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now().UTC()
	args := make([]any, 0, len(rows)*(len(t.columns)+3))
	for _, row := range rows {
		if row.ReadingCity() == "" {
			observability.RecordStoreInsert(t.name, "error")
			return fmt.Errorf("%w: insert %s: row missing city", ErrConstraint, t.name)
		}
		prepared := t.assign(row, uuid.NewString(), now)
		args = append(args, idOf(prepared), prepared.ReadingCity())
		args = append(args, t.args(prepared)...)
		args = append(args, prepared.ReadingTime())
	}

	if _, err := t.p.db.ExecContext(ctx, insertQuery(t.name, t.columns, len(rows)), args...); err != nil {
		observability.RecordStoreInsert(t.name, "error")
		health.RecordStoreError()
		return mapPGError("insert "+t.name, err)
	}

	observability.RecordStoreInsert(t.name, "success")
	health.RecordStoreSuccess()
	return nil
}

func (t *pgTable[T]) Subscribe(fn func(Event)) (Subscription, error) {
	channel := t.name + "_changes"
	listener := pq.NewListener(t.p.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil && t.p.logger != nil {
			t.p.logger.Warn("changefeed listener event", zap.String("table", t.name), zap.Error(err))
		}
	})
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("%w: listen %s: %v", ErrUnavailable, channel, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				op := OpInsert
				// A nil notification means the connection was re-established
				// and events may have been lost; emit anyway so subscribers
				// re-query. At-least-once, not exactly-once.
				if n != nil && n.Extra != "" {
					op = Op(n.Extra)
				}
				fn(Event{Table: t.name, Op: op})
				observability.ChangeEventsTotal.WithLabelValues(t.name).Inc()
			case <-time.After(90 * time.Second):
				go func() {
					_ = listener.Ping()
				}()
			}
		}
	}()
	return &pgSubscription{listener: listener, done: done}, nil
}

type pgSubscription struct {
	once     sync.Once
	listener *pq.Listener
	done     chan struct{}
}

func (s *pgSubscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		_ = s.listener.Close()
	})
}

// mapPGError folds a driver error into the store taxonomy: integrity errors
// (class 23) become ErrConstraint, everything else ErrUnavailable.
func mapPGError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && strings.HasPrefix(string(pqErr.Code), "23") {
		return fmt.Errorf("%w: %s: %v", ErrConstraint, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// idOf extracts the row id assigned by the per-table assign func.
func idOf(row any) string {
	switch r := row.(type) {
	case models.WeatherReading:
		return r.ID
	case models.TrafficReading:
		return r.ID
	case models.ResourceReading:
		return r.ID
	case models.TransportReading:
		return r.ID
	default:
		return ""
	}
}
