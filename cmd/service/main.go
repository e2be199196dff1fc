package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/chat"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/circuitbreaker"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/city"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/config"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/derive"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/httpapi"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/lifecycle"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/meteo"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/observability"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/seed"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/store"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/syncer"
)

// tables bundles the four per-table stores regardless of backend.
type tables struct {
	weather   store.TableStore[models.WeatherReading]
	traffic   store.TableStore[models.TrafficReading]
	resource  store.TableStore[models.ResourceReading]
	transport store.TableStore[models.TransportReading]
}

func main() {
	_ = godotenv.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	var (
		tbl      tables
		pgCloser *store.Postgres
	)
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPostgres(cfg.PostgresDSN, cfg.PostgresMaxConns, cfg.PostgresMaxIdle, logger)
		if err != nil {
			logger.Fatal("postgres store", zap.Error(err))
		}
		pgCloser = pg
		tbl = tables{pg.Weather(), pg.Traffic(), pg.Resource(), pg.Transport()}
		logger.Info("store backend: postgres")
	default:
		m := store.NewMemory()
		tbl = tables{m.Weather(), m.Traffic(), m.Resource(), m.Transport()}
		logger.Info("store backend: in_memory")
	}

	weatherClient := meteo.NewOpenMeteoClient(
		cfg.WeatherAPIURL,
		cfg.WeatherAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	weatherClient.SetCircuitBreaker(newBreaker("weather_api", cfg))

	chatClient, err := chat.NewGatewayClient(cfg.ChatAPIURL, cfg.ChatModel, cfg.ChatAPIKey, cfg.ChatTemperature, cfg.ChatTimeout)
	if err != nil {
		logger.Fatal("chat gateway", zap.Error(err))
	}
	chatClient.SetCircuitBreaker(newBreaker("chat_gateway", cfg))

	cities := city.Names()
	ingestor := meteo.NewIngestor(weatherClient, tbl.weather, logger)
	generator := derive.NewGenerator(tbl.weather, tbl.traffic, cities, logger)
	chatService := chat.NewService(chatClient, tbl.weather, cities, logger)
	populator := seed.NewPopulator(tbl.weather, tbl.traffic, tbl.resource, tbl.transport, cities, logger)

	weatherSync := syncer.New(syncer.Config[models.WeatherReading]{
		Table: store.TableWeather, Store: tbl.weather, Cities: cities, Limit: len(cities) * 5,
		Job: ingestor.Run, JobInterval: cfg.IngestInterval, Logger: logger,
	})
	trafficSync := syncer.New(syncer.Config[models.TrafficReading]{
		Table: store.TableTraffic, Store: tbl.traffic, Cities: cities, Limit: len(cities) * 5,
		Job: generator.Run, JobInterval: cfg.DeriveInterval, Logger: logger,
	})
	resourceSync := syncer.New(syncer.Config[models.ResourceReading]{
		Table: store.TableResource, Store: tbl.resource, Cities: cities, Limit: len(cities) * 5,
		Logger: logger,
	})
	transportSync := syncer.New(syncer.Config[models.TransportReading]{
		Table: store.TableTransport, Store: tbl.transport, Cities: cities, Limit: len(cities) * 10,
		Logger: logger,
	})

	startCtx := context.Background()
	for _, start := range []func(context.Context) error{
		weatherSync.Start, trafficSync.Start, resourceSync.Start, transportSync.Start,
	} {
		if err := start(startCtx); err != nil {
			logger.Fatal("synchronizer", zap.Error(err))
		}
	}

	healthConfig := &httpapi.HealthConfig{
		Window:     cfg.DegradedWindow,
		ErrorPct:   cfg.DegradedErrorPct,
		MinSamples: cfg.DegradedMinSamples,
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	handler := httpapi.NewHandler(
		weatherSync, trafficSync, resourceSync, transportSync,
		tbl.weather,
		chatService,
		ingestor,
		populator,
		cities,
		cfg.ChatMaxMessageLen,
		healthConfig,
		logger,
	)
	router := handler.Router(limiter, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)

	weatherSync.Stop()
	trafficSync.Stop()
	resourceSync.Stop()
	transportSync.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httpapi.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	observability.RecordShutdownInFlight(inFlight)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := httpapi.WaitForInFlight(waitCtx, 100*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httpapi.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if pgCloser != nil {
		if err := pgCloser.Close(); err != nil {
			logger.Error("postgres close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}

// newBreaker builds a circuit breaker wired to the metrics registry.
func newBreaker(component string, cfg *config.Config) *circuitbreaker.CircuitBreaker {
	observability.SetCircuitBreakerStateGauge(component, 0)
	return circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		SuccessThreshold: cfg.BreakerSuccessThreshold,
		Timeout:          cfg.BreakerTimeout,
		Component:        component,
		OnStateChange: func(from, to circuitbreaker.State) {
			observability.RecordCircuitBreakerTransition(component, from.String(), to.String())
			observability.SetCircuitBreakerStateGauge(component, observability.CircuitBreakerStateValue(int(to)))
		},
	})
}
