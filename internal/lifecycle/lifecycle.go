// Package lifecycle holds the process phase shared by the scheduler loop and
// the status server.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// Phase is where the process is in its life.
type Phase int32

const (
	// Starting covers boot: config, panel init, first screen.
	Starting Phase = iota
	// Running means the scheduler loop is live.
	Running
	// ShuttingDown is set on SIGTERM/SIGINT.
	ShuttingDown
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

var (
	phase     atomic.Int32
	startedAt atomic.Int64
)

// MarkRunning records that the loop has started. The first call fixes the
// start time used by Uptime.
func MarkRunning(now time.Time) {
	startedAt.CompareAndSwap(0, now.UnixNano())
	phase.Store(int32(Running))
}

// Current returns the current phase.
func Current() Phase {
	return Phase(phase.Load())
}

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
// Health reports shutting-down while true; false returns to Running.
func SetShuttingDown(v bool) {
	if v {
		phase.Store(int32(ShuttingDown))
		return
	}
	phase.Store(int32(Running))
}

// IsShuttingDown returns true once shutdown has begun.
func IsShuttingDown() bool {
	return Current() == ShuttingDown
}

// Uptime returns how long the loop has been running, or zero before
// MarkRunning.
func Uptime(now time.Time) time.Duration {
	ns := startedAt.Load()
	if ns == 0 {
		return 0
	}
	return now.Sub(time.Unix(0, ns))
}
