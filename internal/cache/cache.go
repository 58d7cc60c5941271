// Package cache holds the last-known-good weather snapshot.
package cache

import (
	"sync"
	"time"

	"github.com/kjstillabower/deskclock/internal/models"
	"github.com/kjstillabower/deskclock/internal/weather"
)

// WeatherCache keeps the most recent successful reading. The weather poll is
// its only writer; the screens and the status server read copies.
type WeatherCache struct {
	mu   sync.RWMutex
	snap models.WeatherSnapshot
	now  func() time.Time
}

// NewWeatherCache returns an empty cache. Its snapshot is invalid until the
// first successful Apply.
func NewWeatherCache() *WeatherCache {
	return &WeatherCache{now: time.Now}
}

// Snapshot returns a copy of the current snapshot.
func (c *WeatherCache) Snapshot() models.WeatherSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// FetchedAt returns when the snapshot was last replaced, zero if never.
func (c *WeatherCache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.FetchedAt
}

// Apply stores the outcome of one fetch. On error the snapshot is left
// exactly as it was. It reports whether the snapshot changed.
func (c *WeatherCache) Apply(r models.WeatherReading, err error) bool {
	if err != nil {
		return false
	}
	next := models.WeatherSnapshot{
		Temperature:   r.Temperature,
		Humidity:      r.Humidity,
		ConditionCode: r.ConditionCode,
		IsDaytime:     r.IsDaytime,
		Description:   weather.Classify(r.ConditionCode),
		FetchedAt:     c.now(),
		Valid:         true,
	}

	c.mu.Lock()
	c.snap = next
	c.mu.Unlock()
	return true
}
