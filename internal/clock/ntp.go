package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"
	"go.uber.org/zap"
)

// QueryFunc returns the current time from a network source.
type QueryFunc func(ctx context.Context) (time.Time, error)

// NTPSyncer performs the one-shot network time sync for a SoftClock.
type NTPSyncer struct {
	clock  *SoftClock
	query  QueryFunc
	logger *zap.Logger
}

// NewNTPSyncer queries server with the given timeout.
func NewNTPSyncer(clock *SoftClock, server string, timeout time.Duration, logger *zap.Logger) *NTPSyncer {
	return NewSyncer(clock, ntpQuery(server, timeout), logger)
}

// NewSyncer builds a syncer around an arbitrary time source.
func NewSyncer(clock *SoftClock, query QueryFunc, logger *zap.Logger) *NTPSyncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NTPSyncer{clock: clock, query: query, logger: logger}
}

// Sync queries the source and writes the clock. It is a no-op returning nil
// when the clock is already synced.
func (s *NTPSyncer) Sync(ctx context.Context) error {
	if s.clock.Synced() {
		return nil
	}
	t, err := s.query(ctx)
	if err != nil {
		return fmt.Errorf("time sync: %w", err)
	}
	if err := s.clock.Sync(t); err != nil {
		return fmt.Errorf("time sync: %w", err)
	}
	s.logger.Info("clock synced", zap.Time("time", s.clock.Now()))
	return nil
}

// Synced reports whether the underlying clock has been synced.
func (s *NTPSyncer) Synced() bool {
	return s.clock.Synced()
}

func ntpQuery(server string, timeout time.Duration) QueryFunc {
	return func(ctx context.Context) (time.Time, error) {
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}
		wait := timeout
		if deadline, ok := ctx.Deadline(); ok {
			if left := time.Until(deadline); left < wait {
				wait = left
			}
		}
		resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: wait})
		if err != nil {
			return time.Time{}, fmt.Errorf("query %s: %w", server, err)
		}
		if err := resp.Validate(); err != nil {
			return time.Time{}, fmt.Errorf("validate %s: %w", server, err)
		}
		return resp.Time, nil
	}
}
