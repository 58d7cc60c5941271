// Package health derives the device's reported health from recent weather
// poll outcomes, refresh denials and the shutdown flag.
package health

import (
	"time"

	"github.com/kjstillabower/deskclock/internal/lifecycle"
)

// State is the reported health.
type State string

const (
	Starting     State = "starting"
	Healthy      State = "healthy"
	Degraded     State = "degraded"
	Overloaded   State = "overloaded"
	ShuttingDown State = "shutting-down"
)

// Thresholds configure when the device reports degraded or overloaded.
type Thresholds struct {
	Window             time.Duration
	DegradedFailurePct int
	OverloadDenials    int
}

// Result is one evaluation.
type Result struct {
	State  State
	Reason string
}

// OK reports whether the state should be served with a 2xx status.
func (r Result) OK() bool { return r.State == Healthy }

// Checker evaluates health from a tracker. breakerOpen may be nil.
type Checker struct {
	tracker     *Tracker
	thresholds  Thresholds
	breakerOpen func() bool
}

// NewChecker returns a checker over t.
func NewChecker(t *Tracker, th Thresholds, breakerOpen func() bool) *Checker {
	if th.Window <= 0 {
		th.Window = time.Hour
	}
	return &Checker{tracker: t, thresholds: th, breakerOpen: breakerOpen}
}

// Tracker returns the tracker the checker reads.
func (c *Checker) Tracker() *Tracker { return c.tracker }

// Evaluate checks conditions in priority order:
// shutting-down > starting > overloaded > degraded > healthy.
func (c *Checker) Evaluate() Result {
	switch lifecycle.Current() {
	case lifecycle.ShuttingDown:
		return Result{ShuttingDown, "signal"}
	case lifecycle.Starting:
		return Result{Starting, "boot"}
	}
	if c.thresholds.OverloadDenials > 0 && c.tracker.DenialCount(c.thresholds.Window) > c.thresholds.OverloadDenials {
		return Result{Overloaded, "refresh_denials"}
	}
	if c.breakerOpen != nil && c.breakerOpen() {
		return Result{Degraded, "circuit_open"}
	}
	if c.thresholds.DegradedFailurePct > 0 {
		failures, total := c.tracker.FailureRate(c.thresholds.Window)
		if total > 0 && failures*100/total >= c.thresholds.DegradedFailurePct {
			return Result{Degraded, "poll_failure_rate"}
		}
	}
	return Result{Healthy, ""}
}
