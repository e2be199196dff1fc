package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/health"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/lifecycle"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/observability"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/seed"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/store"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/syncer"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/trend"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/validation"
)

// ChatService answers one user message.
type ChatService interface {
	Answer(ctx context.Context, message string) (string, error)
}

// IngestRunner triggers one weather fetch-and-store cycle.
type IngestRunner interface {
	Run(ctx context.Context) error
}

// Seeder guards and runs demo-data population.
type Seeder interface {
	HasData(ctx context.Context) (bool, error)
	PopulateAll(ctx context.Context) (seed.Counts, error)
}

// HealthConfig holds the degraded-state thresholds for the health handler.
type HealthConfig struct {
	Window     time.Duration
	ErrorPct   int
	MinSamples int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather   *syncer.Synchronizer[models.WeatherReading]
	traffic   *syncer.Synchronizer[models.TrafficReading]
	resources *syncer.Synchronizer[models.ResourceReading]
	transport *syncer.Synchronizer[models.TransportReading]

	weatherHistory store.TableStore[models.WeatherReading]
	chat           ChatService
	ingest         IngestRunner
	seeder         Seeder

	cities        []string
	maxMessageLen int
	healthConfig  *HealthConfig
	logger        *zap.Logger

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	weather *syncer.Synchronizer[models.WeatherReading],
	traffic *syncer.Synchronizer[models.TrafficReading],
	resources *syncer.Synchronizer[models.ResourceReading],
	transport *syncer.Synchronizer[models.TransportReading],
	weatherHistory store.TableStore[models.WeatherReading],
	chat ChatService,
	ingest IngestRunner,
	seeder Seeder,
	cities []string,
	maxMessageLen int,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		weather:        weather,
		traffic:        traffic,
		resources:      resources,
		transport:      transport,
		weatherHistory: weatherHistory,
		chat:           chat,
		ingest:         ingest,
		seeder:         seeder,
		cities:         cities,
		maxMessageLen:  maxMessageLen,
		healthConfig:   healthConfig,
		logger:         logger,
	}
}

// Router wires all routes with the middleware chain.
func (h *Handler) Router(limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(h.logger))
	r.Use(mux.MiddlewareFunc(MetricsMiddleware))
	r.Use(RateLimitMiddleware(limiter))

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(TimeoutMiddleware(requestTimeout))
	api.HandleFunc("/weather", h.GetWeather).Methods("GET")
	api.HandleFunc("/traffic", h.GetTraffic).Methods("GET")
	api.HandleFunc("/resources", h.GetResources).Methods("GET")
	api.HandleFunc("/transport", h.GetTransport).Methods("GET")
	api.HandleFunc("/predictions", h.GetPredictions).Methods("GET")
	api.HandleFunc("/chat", h.PostChat).Methods("POST")
	api.HandleFunc("/ingest", h.PostIngest).Methods("POST")
	api.HandleFunc("/seed", h.PostSeed).Methods("POST")

	r.HandleFunc("/health", h.GetHealth).Methods("GET")
	r.Handle("/metrics", observability.MetricsHandler()).Methods("GET")
	return r
}

// ordered flattens a latest-per-city projection into registry city order.
func ordered[T models.Reading](projection map[string]T, cities []string) []T {
	out := make([]T, 0, len(projection))
	for _, name := range cities {
		if row, ok := projection[name]; ok {
			out = append(out, row)
		}
	}
	return out
}

// GetWeather handles GET /api/v1/weather.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ordered(h.weather.Projection(), h.cities))
}

// GetTraffic handles GET /api/v1/traffic.
func (h *Handler) GetTraffic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ordered(h.traffic.Projection(), h.cities))
}

// GetResources handles GET /api/v1/resources.
func (h *Handler) GetResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ordered(h.resources.Projection(), h.cities))
}

// GetTransport handles GET /api/v1/transport.
func (h *Handler) GetTransport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ordered(h.transport.Projection(), h.cities))
}

// GetPredictions handles GET /api/v1/predictions. Predictions are recomputed
// from the store per request; cities with too little history are absent.
func (h *Handler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.weatherHistory.QueryLatest(r.Context(), h.cities, len(h.cities)*12)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	predictions := trend.Predict(rows, time.Now().UTC())
	out := make([]trend.Prediction, 0, len(predictions))
	for _, name := range h.cities {
		if p, ok := predictions[name]; ok {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// PostChat handles POST /api/v1/chat. Gateway failures arrive from the chat
// service as advisory reply text, so they are 200s here.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a message field")
		return
	}

	message, err := validation.ValidateMessage(body.Message, h.maxMessageLen)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_MESSAGE", err.Error())
		return
	}

	reply, err := h.chat.Answer(r.Context(), message)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "CHAT_FAILED", "unable to produce a reply")
		if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
			logger.Warn("chat request failed", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// PostIngest handles POST /api/v1/ingest: one on-demand weather ingestion.
func (h *Handler) PostIngest(w http.ResponseWriter, r *http.Request) {
	if err := h.ingest.Run(r.Context()); err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			writeStoreError(w, r, err)
			return
		}
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "unable to fetch weather data")
		if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
			logger.Warn("on-demand ingestion failed", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// PostSeed handles POST /api/v1/seed. Guarded so a second click cannot pile
// demo rows onto existing data; ?force=1 overrides.
func (h *Handler) PostSeed(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1"
	if !force {
		has, err := h.seeder.HasData(r.Context())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if has {
			writeError(w, r, http.StatusConflict, "ALREADY_SEEDED", "data already exists; pass force=1 to seed anyway")
			return
		}
	}

	counts, err := h.seeder.PopulateAll(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "inserted": counts})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"store": "healthy", "ingestion": "healthy"}
	switch result.reason {
	case "store_error_rate":
		checks["store"] = "unhealthy"
	case "ingest_error_rate":
		checks["ingestion"] = "unhealthy"
	}

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "climamind-sync",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > store degraded > ingestion degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}

	errs, total := health.StoreErrorRate(h.healthConfig.Window)
	if health.Degraded(errs, total, h.healthConfig.ErrorPct, h.healthConfig.MinSamples) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "store_error_rate"}
	}

	errs, total = health.IngestErrorRate(h.healthConfig.Window)
	if health.Degraded(errs, total, h.healthConfig.ErrorPct, h.healthConfig.MinSamples) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "ingest_error_rate"}
	}

	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeStoreError writes a 503 for row-store failures and logs the cause at
// DEBUG so dashboards see a stable code, not driver internals.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "unable to reach the data store")
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("store error", zap.Error(err))
	}
}
