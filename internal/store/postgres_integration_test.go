//go:build integration
// +build integration

package store

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/testhelpers"
)

// TestPostgres_InsertAndQuery exercises the real driver against a database
// prepared with scripts/schema.sql. Run with -tags integration.
func TestPostgres_InsertAndQuery(t *testing.T) {
	dsn := testhelpers.PostgresDSN(t)

	pg, err := NewPostgres(dsn, 4, 2, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPostgres() error = %v", err)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	marker := 20 + float64(time.Now().UnixNano()%100)
	err = pg.Weather().Insert(ctx, []models.WeatherReading{
		{City: "Dubai", Temperature: marker, Humidity: 55},
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	rows, err := pg.Weather().QueryLatest(ctx, []string{"Dubai"}, 1)
	if err != nil {
		t.Fatalf("QueryLatest() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Temperature != marker {
		t.Errorf("Temperature = %v, want the just-inserted %v", rows[0].Temperature, marker)
	}
	if rows[0].ID == "" || rows[0].Timestamp.IsZero() {
		t.Error("row missing server-assigned id or timestamp")
	}
}

// TestPostgres_ChangeNotification verifies LISTEN/NOTIFY delivery through the
// schema triggers.
func TestPostgres_ChangeNotification(t *testing.T) {
	dsn := testhelpers.PostgresDSN(t)

	pg, err := NewPostgres(dsn, 4, 2, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPostgres() error = %v", err)
	}
	defer pg.Close()

	events := make(chan Event, 1)
	sub, err := pg.Weather().Subscribe(func(ev Event) {
		select {
		case events <- ev:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Cancel()

	// Listener setup races the insert without a settle delay.
	time.Sleep(500 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = pg.Weather().Insert(ctx, []models.WeatherReading{{City: "Sharjah", Temperature: 33}})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	select {
	case ev := <-events:
		if ev.Table != TableWeather {
			t.Errorf("event table = %q, want %q", ev.Table, TableWeather)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification within 5s")
	}
}
