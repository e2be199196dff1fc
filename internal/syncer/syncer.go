package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/observability"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/store"
)

// Config wires one Synchronizer to its table.
type Config[T models.Reading] struct {
	// Table is the metric label and log field for this synchronizer.
	Table string
	// Store is the table being mirrored.
	Store store.TableStore[T]
	// Cities bounds queries and the projection to the tracked set.
	Cities []string
	// Limit caps the refetch query; zero means no limit.
	Limit int
	// Job, when set, runs every JobInterval while the synchronizer is active.
	// The weather synchronizer ingests here, the traffic one derives.
	Job         func(ctx context.Context) error
	JobInterval time.Duration
	Logger      *zap.Logger
}

// Synchronizer mirrors one table's latest-per-city view in memory. It
// refetches on change notifications and optionally runs a periodic job.
// All refetches go through one event loop, so a notification arriving during
// a refetch coalesces into at most one more.
type Synchronizer[T models.Reading] struct {
	cfg Config[T]

	mu         sync.RWMutex
	projection map[string]T

	kick      chan struct{}
	sub       store.Subscription
	scheduler *gocron.Scheduler
	cancel    context.CancelFunc
	done      chan struct{}
	stopOnce  sync.Once
	started   bool
}

// New creates a Synchronizer from cfg. Call Start to activate it.
func New[T models.Reading](cfg Config[T]) *Synchronizer[T] {
	return &Synchronizer[T]{
		cfg:        cfg,
		projection: make(map[string]T),
		kick:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start performs the initial fetch, subscribes to change notifications, and
// starts the periodic job if one is configured. The initial fetch failing is
// not fatal; the projection stays empty until the first successful refetch.
func (s *Synchronizer[T]) Start(ctx context.Context) error {
	if s.started {
		return fmt.Errorf("synchronizer %s already started", s.cfg.Table)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.refresh(ctx)

	sub, err := s.cfg.Store.Subscribe(func(store.Event) {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", s.cfg.Table, err)
	}
	s.sub = sub

	if s.cfg.Job != nil && s.cfg.JobInterval > 0 {
		s.scheduler = gocron.NewScheduler(time.UTC)
		_, err := s.scheduler.Every(s.cfg.JobInterval).Do(func() {
			if err := s.cfg.Job(runCtx); err != nil {
				s.cfg.Logger.Warn("scheduled job failed",
					zap.String("table", s.cfg.Table), zap.Error(err))
			}
		})
		if err != nil {
			sub.Cancel()
			cancel()
			return fmt.Errorf("schedule %s job: %w", s.cfg.Table, err)
		}
		s.scheduler.StartAsync()
	}

	// Marked started only once the loop goroutine is launched; a failed Start
	// leaves nothing for Stop to wait on.
	s.started = true
	go s.loop(runCtx)

	s.cfg.Logger.Info("synchronizer started", zap.String("table", s.cfg.Table))
	return nil
}

func (s *Synchronizer[T]) loop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			s.refresh(ctx)
		}
	}
}

// refresh refetches the latest-per-city view. On error the previous
// projection stays in place; a resolution arriving after Stop is discarded.
func (s *Synchronizer[T]) refresh(ctx context.Context) {
	rows, err := s.cfg.Store.QueryLatest(ctx, s.cfg.Cities, s.cfg.Limit)
	if err != nil {
		observability.SyncRefreshesTotal.WithLabelValues(s.cfg.Table, "error").Inc()
		s.cfg.Logger.Warn("refetch failed, keeping previous projection",
			zap.String("table", s.cfg.Table), zap.Error(err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	latest := models.LatestPerCity(rows, s.cfg.Cities)

	s.mu.Lock()
	s.projection = latest
	s.mu.Unlock()

	observability.SyncRefreshesTotal.WithLabelValues(s.cfg.Table, "success").Inc()
}

// Projection returns a copy of the current latest-per-city view.
func (s *Synchronizer[T]) Projection() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]T, len(s.projection))
	for k, v := range s.projection {
		out[k] = v
	}
	return out
}

// Stop deactivates the synchronizer: the subscription is cancelled, the job
// scheduler stops, and no further projection mutation happens. Idempotent.
func (s *Synchronizer[T]) Stop() {
	if !s.started {
		return
	}
	s.stopOnce.Do(func() {
		if s.scheduler != nil {
			s.scheduler.Stop()
		}
		if s.sub != nil {
			s.sub.Cancel()
		}
		s.cancel()
		<-s.done
		s.cfg.Logger.Info("synchronizer stopped", zap.String("table", s.cfg.Table))
	})
}
