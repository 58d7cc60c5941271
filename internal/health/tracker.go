package health

import (
	"sync"
	"time"
)

// Tracker keeps sliding windows of weather poll outcomes and refresh
// denials. It is the single source for the degraded and overloaded checks.
type Tracker struct {
	mu           sync.Mutex
	maxAge       time.Duration
	successTimes []time.Time
	failureTimes []time.Time
	deniedTimes  []time.Time

	now func() time.Time
}

// NewTracker returns a tracker that forgets outcomes older than maxAge.
func NewTracker(maxAge time.Duration) *Tracker {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Tracker{maxAge: maxAge, now: time.Now}
}

// RecordPoll records the outcome of one weather poll that reached the network.
func (t *Tracker) RecordPoll(ok bool) {
	if ok {
		t.record(&t.successTimes)
		return
	}
	t.record(&t.failureTimes)
}

// RecordDenied records a refresh request rejected by the rate limiter.
func (t *Tracker) RecordDenied() {
	t.record(&t.deniedTimes)
}

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// FailureRate returns (failures, total) within the window. Denials are not
// polls and are excluded.
func (t *Tracker) FailureRate(window time.Duration) (failures, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	failures = countSince(t.failureTimes, cutoff)
	return failures, failures + countSince(t.successTimes, cutoff)
}

// DenialCount returns the number of denials within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.deniedTimes, t.now().Add(-window))
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successTimes = nil
	t.failureTimes = nil
	t.deniedTimes = nil
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than maxAge. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.maxAge)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successTimes)
	prune(&t.failureTimes)
	prune(&t.deniedTimes)
}
