package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

var ist = time.FixedZone("IST", 19800)

func fixedHost(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSoftClock_FallbackThenSync(t *testing.T) {
	host := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewSoftClock(ist)
	c.now = fixedHost(host)

	fallback := time.Unix(1739009400, 0)
	if err := c.SetFallback(fallback); err != nil {
		t.Fatalf("SetFallback() error = %v", err)
	}
	if got := c.Now(); !got.Equal(fallback) {
		t.Errorf("Now() = %v, want %v", got, fallback)
	}
	if got := c.Now().Location(); got != ist {
		t.Errorf("Now().Location() = %v, want IST", got)
	}

	synced := fallback.Add(42 * time.Minute)
	if err := c.Sync(synced); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !c.Synced() {
		t.Error("Synced() = false after Sync")
	}
	if got := c.Now(); !got.Equal(synced) {
		t.Errorf("Now() = %v, want %v", got, synced)
	}
}

// TestSoftClock_SingleWriterAfterSync verifies neither the fallback nor a
// second sync can move the clock once it has been synced.
func TestSoftClock_SingleWriterAfterSync(t *testing.T) {
	c := NewSoftClock(nil)
	c.now = fixedHost(time.Unix(0, 0))
	want := time.Unix(2_000_000_000, 0)
	if err := c.Sync(want); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if err := c.SetFallback(time.Unix(1739009400, 0)); !errors.Is(err, ErrAlreadySynced) {
		t.Errorf("SetFallback() after sync error = %v, want ErrAlreadySynced", err)
	}
	if err := c.Sync(time.Unix(1, 0)); !errors.Is(err, ErrAlreadySynced) {
		t.Errorf("second Sync() error = %v, want ErrAlreadySynced", err)
	}
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v unchanged", got, want)
	}
}

func TestMonotonic_StartsNearZero(t *testing.T) {
	m := NewMonotonic()
	if got := m.Millis(); got > 1000 {
		t.Errorf("Millis() = %d right after construction, want < 1000", got)
	}
}

func TestSample(t *testing.T) {
	ts := Sample(time.Date(2026, time.February, 8, 14, 7, 3, 0, ist))
	want := TimeSample{Hour: 14, Minute: 7, Second: 3, Day: 8, Month: time.February, Weekday: time.Sunday}
	if ts != want {
		t.Errorf("Sample() = %+v, want %+v", ts, want)
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"two digit 0", TwoDigit(0), "00"},
		{"two digit 7", TwoDigit(7), "07"},
		{"two digit 14", TwoDigit(14), "14"},
		{"two digit 31", TwoDigit(31), "31"},
		{"month feb", MonthAbbrev(time.February), "FEB"},
		{"month may", MonthAbbrev(time.May), "MAY"},
		{"month dec", MonthAbbrev(time.December), "DEC"},
		{"weekday sun", WeekdayAbbrev(time.Sunday), "SUN"},
		{"weekday wed", WeekdayAbbrev(time.Wednesday), "WED"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestNTPSyncer_SyncOnce(t *testing.T) {
	c := NewSoftClock(nil)
	calls := 0
	want := time.Unix(1_800_000_000, 0)
	s := NewSyncer(c, func(ctx context.Context) (time.Time, error) {
		calls++
		return want, nil
	}, nil)

	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("query calls = %d, want 1", calls)
	}
	if !s.Synced() {
		t.Error("Synced() = false")
	}
}

func TestNTPSyncer_FailureLeavesClockUnsynced(t *testing.T) {
	c := NewSoftClock(nil)
	s := NewSyncer(c, func(ctx context.Context) (time.Time, error) {
		return time.Time{}, errors.New("i/o timeout")
	}, nil)
	if err := s.Sync(context.Background()); err == nil {
		t.Fatal("Sync() error = nil, want error")
	}
	if c.Synced() {
		t.Error("Synced() = true after failed query")
	}
}
