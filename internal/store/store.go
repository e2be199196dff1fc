package store

import (
	"context"
	"errors"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
)

// ErrUnavailable means the backing row store could not be reached. Callers
// retry on their next scheduled cycle; nothing crashes on it.
var ErrUnavailable = errors.New("store unavailable")

// ErrConstraint means an insert carried a malformed row. The batch is logged
// and dropped.
var ErrConstraint = errors.New("constraint violation")

// Table names in the row store.
const (
	TableWeather   = "weather_data"
	TableTraffic   = "traffic_data"
	TableResource  = "resource_data"
	TableTransport = "transport_data"
)

// Op identifies the kind of change behind an Event.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event signals that a table changed. Delivery is at-least-once and the only
// trustworthy payload is the table name; subscribers re-query instead of
// reading row contents off the event.
type Event struct {
	Table string
	Op    Op
}

// Subscription is a handle to an active change subscription.
type Subscription interface {
	// Cancel stops delivery. Safe to call more than once.
	Cancel()
}

// TableStore is the per-table contract against the row store. The store is
// append-only from the application's perspective: inserts and selects only.
type TableStore[T models.Reading] interface {
	// QueryLatest returns rows for the given cities ordered newest first.
	// Secondary order is deterministic per backend (insertion order in memory,
	// id in postgres), which fixes the latest-per-city tie-break. limit <= 0
	// means no limit. No matching rows is an empty slice, not an error.
	QueryLatest(ctx context.Context, cities []string, limit int) ([]T, error)

	// Insert writes rows in one batch. Missing ids and timestamps are assigned
	// at write time. There is no dedup; a repeated insert is a new row.
	Insert(ctx context.Context, rows []T) error

	// Subscribe registers fn for change events on this table.
	Subscribe(fn func(Event)) (Subscription, error)
}
