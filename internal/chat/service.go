package chat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/store"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/trend"
)

// Advisory strings returned as the reply text when the gateway fails. The
// user sees these instead of raw provider errors.
const (
	adviceRateLimited = "I'm receiving a lot of questions right now. Please try again in a moment."
	adviceQuota       = "The assistant's usage quota is exhausted for now. Please try again later."
	adviceAuth        = "The assistant isn't set up correctly on this deployment. Please contact the operator."
	adviceUpstream    = "The assistant is temporarily unreachable. Please try again shortly."
)

// rowsPerCity bounds the grounding query. Twelve rows per city covers the
// predictor's two-hour window at the ten-minute ingest cadence.
const rowsPerCity = 12

// Service answers user questions grounded in current readings. Stateless: each
// call re-derives its context from the store, no conversation memory is kept.
type Service struct {
	completer Completer
	weather   store.TableStore[models.WeatherReading]
	cities    []string
	logger    *zap.Logger
}

// NewService creates a chat service over the given completer and weather store.
func NewService(completer Completer, weather store.TableStore[models.WeatherReading], cities []string, logger *zap.Logger) *Service {
	return &Service{completer: completer, weather: weather, cities: cities, logger: logger}
}

// Answer produces one assistant reply for the user's message. Gateway failures
// come back as advisory reply text with a nil error; only request-building
// failures are returned as errors. A store outage degrades grounding rather
// than failing the chat.
func (s *Service) Answer(ctx context.Context, message string) (string, error) {
	latest, predictions := s.grounding(ctx)
	systemPrompt := BuildSystemPrompt(latest, predictions, s.cities)

	reply, err := s.completer.Complete(ctx, systemPrompt, message)
	if err != nil {
		advice := adviceFor(err)
		s.logger.Warn("chat completion failed",
			zap.Error(err),
			zap.Int("groundedCities", len(latest)))
		return advice, nil
	}
	return reply, nil
}

// grounding loads the latest weather per city and the trend predictions.
// Failures leave the assistant ungrounded but still responsive.
func (s *Service) grounding(ctx context.Context) (map[string]models.WeatherReading, map[string]trend.Prediction) {
	rows, err := s.weather.QueryLatest(ctx, s.cities, len(s.cities)*rowsPerCity)
	if err != nil {
		s.logger.Warn("chat grounding query failed, answering without live data", zap.Error(err))
		return nil, nil
	}

	latest := models.LatestPerCity(rows, s.cities)
	predictions := trend.Predict(rows, time.Now().UTC())
	return latest, predictions
}

func adviceFor(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return adviceRateLimited
	case errors.Is(err, ErrQuotaExceeded):
		return adviceQuota
	case errors.Is(err, ErrAuthInvalid):
		return adviceAuth
	default:
		return adviceUpstream
	}
}
