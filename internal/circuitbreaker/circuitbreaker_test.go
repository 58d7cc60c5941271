package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream 503")

type transition struct{ from, to State }

func newTestBreaker(cfg Config) (*CircuitBreaker, *time.Time, *[]transition) {
	var changes []transition
	cfg.OnStateChange = func(from, to State) { changes = append(changes, transition{from, to}) }
	cb := New(cfg)
	now := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }
	return cb, &now, &changes
}

func fail(context.Context) error { return errUpstream }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _, changes := newTestBreaker(Config{FailureThreshold: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Call(ctx, fail); !errors.Is(err, errUpstream) {
			t.Fatalf("Call() #%d error = %v, want %v", i+1, err, errUpstream)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("State() = %s, want open", cb.State())
	}

	called := false
	err := cb.Call(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Call() while open error = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn ran while circuit open")
	}
	if len(*changes) != 1 || (*changes)[0] != (transition{StateClosed, StateOpen}) {
		t.Errorf("transitions = %v, want [closed->open]", *changes)
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	tests := []struct {
		name      string
		probe     func(context.Context) error
		wantState State
	}{
		{"probe succeeds", succeed, StateClosed},
		{"probe fails", fail, StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, now, changes := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Minute})
			ctx := context.Background()
			_ = cb.Call(ctx, fail)

			*now = now.Add(time.Minute)
			_ = cb.Call(ctx, tt.probe)

			if cb.State() != tt.wantState {
				t.Errorf("State() = %s, want %s", cb.State(), tt.wantState)
			}
			want := []transition{{StateClosed, StateOpen}, {StateOpen, StateHalfOpen}, {StateHalfOpen, tt.wantState}}
			if len(*changes) != len(want) {
				t.Fatalf("transitions = %v, want %v", *changes, want)
			}
			for i := range want {
				if (*changes)[i] != want[i] {
					t.Errorf("transition %d = %v, want %v", i, (*changes)[i], want[i])
				}
			}
		})
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _, _ := newTestBreaker(Config{FailureThreshold: 2})
	ctx := context.Background()

	_ = cb.Call(ctx, fail)
	_ = cb.Call(ctx, succeed)
	_ = cb.Call(ctx, fail)

	if cb.State() != StateClosed {
		t.Errorf("State() = %s, want closed", cb.State())
	}
}

func TestCircuitBreaker_IgnoredErrors(t *testing.T) {
	errBadKey := errors.New("bad key")
	cb, _, _ := newTestBreaker(Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, errBadKey) },
	})
	ctx := context.Background()

	_ = cb.Call(ctx, func(context.Context) error { return errBadKey })
	_ = cb.Call(ctx, func(context.Context) error { return context.Canceled })

	if cb.State() != StateClosed {
		t.Errorf("State() = %s, want closed", cb.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
