// Package clock provides the millisecond counter and wall-clock sources the
// scheduler and screens read from.
package clock

import (
	"errors"
	"sync"
	"time"
)

// ErrAlreadySynced is returned when a second writer tries to set a clock that
// has already been synchronized.
var ErrAlreadySynced = errors.New("clock already synced")

// Counter is a monotonic millisecond counter that wraps at 2^32.
type Counter interface {
	Millis() uint32
}

// WallClock reads calendar time.
type WallClock interface {
	Now() time.Time
}

// Monotonic counts milliseconds since construction.
type Monotonic struct {
	start time.Time
}

// NewMonotonic returns a counter starting at zero.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Millis returns elapsed milliseconds truncated to 32 bits; callers compare
// values with unsigned subtraction so the wrap every ~49.7 days is harmless.
func (m *Monotonic) Millis() uint32 {
	return uint32(time.Since(m.start).Milliseconds())
}

// SoftClock is a settable wall clock kept as an offset from the host clock.
// It is written at most twice: once with a fallback epoch at boot and once by
// a time sync. A fallback never overrides a completed sync.
type SoftClock struct {
	mu     sync.RWMutex
	offset time.Duration
	loc    *time.Location
	synced bool
	now    func() time.Time
}

// NewSoftClock returns a clock reporting host time in loc (UTC if nil).
func NewSoftClock(loc *time.Location) *SoftClock {
	if loc == nil {
		loc = time.UTC
	}
	return &SoftClock{loc: loc, now: time.Now}
}

// Now returns the current wall time in the clock's location.
func (c *SoftClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now().Add(c.offset).In(c.loc)
}

// SetFallback sets the clock to a fixed epoch. It fails once the clock has
// been synced.
func (c *SoftClock) SetFallback(epoch time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.synced {
		return ErrAlreadySynced
	}
	c.offset = epoch.Sub(c.now())
	return nil
}

// Sync sets the clock from an authoritative source. Only the first call takes
// effect.
func (c *SoftClock) Sync(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.synced {
		return ErrAlreadySynced
	}
	c.offset = t.Sub(c.now())
	c.synced = true
	return nil
}

// Synced reports whether Sync has succeeded.
func (c *SoftClock) Synced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}

// Location returns the display zone.
func (c *SoftClock) Location() *time.Location {
	return c.loc
}
