package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/deskclock/internal/cache"
	"github.com/kjstillabower/deskclock/internal/client"
	"github.com/kjstillabower/deskclock/internal/models"
	"github.com/kjstillabower/deskclock/internal/observability"
)

// OutcomeRecorder receives the result of every poll that reached the network.
type OutcomeRecorder interface {
	RecordPoll(ok bool)
}

// WeatherService runs one weather poll: fetch, apply to the last-known-good
// cache, mirror. It never touches the GUI; the outdoor screen picks the new
// snapshot up on its next entry.
type WeatherService struct {
	client        client.WeatherClient
	cache         *cache.WeatherCache
	mirror        cache.Mirror
	mirrorTimeout time.Duration
	pollDeadline  time.Duration
	outcomes      OutcomeRecorder
	logger        *zap.Logger
}

// NewWeatherService creates a WeatherService. mirror may be nil.
func NewWeatherService(c client.WeatherClient, wc *cache.WeatherCache, mirror cache.Mirror, mirrorTimeout time.Duration, logger *zap.Logger) *WeatherService {
	if mirror == nil {
		mirror = cache.NopMirror{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if mirrorTimeout <= 0 {
		mirrorTimeout = 500 * time.Millisecond
	}
	return &WeatherService{
		client:        c,
		cache:         wc,
		mirror:        mirror,
		mirrorTimeout: mirrorTimeout,
		logger:        logger,
	}
}

// SetOutcomeRecorder attaches r to receive poll outcomes. Call before the
// loop starts.
func (s *WeatherService) SetOutcomeRecorder(r OutcomeRecorder) {
	s.outcomes = r
}

// SetPollDeadline bounds the whole fetch, retries and backoff included. Zero
// leaves the fetch bounded only by the client's own timeouts.
func (s *WeatherService) SetPollDeadline(d time.Duration) {
	s.pollDeadline = d
}

// Refresh performs one poll. When offline it does nothing. A failed fetch
// leaves the cached snapshot untouched and returns the error with the poll id
// and failure category attached.
func (s *WeatherService) Refresh(ctx context.Context, online bool) error {
	if !online {
		observability.WeatherPollsTotal.WithLabelValues("offline").Inc()
		s.logger.Debug("weather poll skipped, network unavailable")
		return nil
	}

	pollID := uuid.NewString()
	start := time.Now()

	reading, err := s.fetch(ctx)
	s.cache.Apply(reading, err)
	if s.outcomes != nil {
		s.outcomes.RecordPoll(err == nil)
	}
	if err != nil {
		observability.WeatherPollsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("weather poll %s (%s): %w", pollID, client.CategorizeError(err), err)
	}
	observability.WeatherPollsTotal.WithLabelValues("success").Inc()

	snap := s.cache.Snapshot()
	s.logger.Info("weather updated",
		zap.String("poll_id", pollID),
		zap.Int("temperature", snap.Temperature),
		zap.Int("humidity", snap.Humidity),
		zap.Int("condition_code", snap.ConditionCode),
		zap.Stringer("description", snap.Description),
		zap.Bool("is_daytime", snap.IsDaytime),
		zap.Duration("duration", time.Since(start)),
	)

	mctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()
	if err := s.mirror.Publish(mctx, snap); err != nil {
		observability.CacheMirrorWritesTotal.WithLabelValues("error").Inc()
		s.logger.Warn("snapshot mirror failed", zap.String("poll_id", pollID), zap.Error(err))
		return nil
	}
	observability.CacheMirrorWritesTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *WeatherService) fetch(ctx context.Context) (models.WeatherReading, error) {
	if s.pollDeadline <= 0 {
		return s.client.GetCurrentWeather(ctx)
	}
	fctx, cancel := context.WithTimeout(ctx, s.pollDeadline)
	defer cancel()
	return s.client.GetCurrentWeather(fctx)
}
