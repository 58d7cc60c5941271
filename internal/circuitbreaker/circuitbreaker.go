package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Call while the circuit is open.
var ErrOpen = errors.New("circuit breaker open")

// State represents the circuit breaker state.
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// State is the circuit breaker state (Closed, Open, HalfOpen).
type State int

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops hammering the weather API after repeated failures and
// lets a probe through once the open timeout has passed. On a desk panel the
// open circuit simply means the last-known-good snapshot stays on screen.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int
	openedAt         time.Time
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	isFailure        func(error) bool
	onStateChange    func(from, to State)
	now              func() time.Time
}

// Config holds circuit breaker parameters.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration

	// IsFailure decides which errors count toward opening. Nil counts all.
	// Context cancellation never counts.
	IsFailure func(error) bool

	// OnStateChange is called outside the lock, for metrics and logs.
	OnStateChange func(from, to State)
}

// New creates a new CircuitBreaker with the given config.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		timeout:          cfg.Timeout,
		isFailure:        cfg.IsFailure,
		onStateChange:    cfg.OnStateChange,
		now:              time.Now,
	}
}

// Call runs fn when the circuit allows it and records the outcome. While open
// it returns ErrOpen without calling fn.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	probing, ok := cb.allow()
	if !ok {
		return ErrOpen
	}
	if probing {
		cb.notify(StateOpen, StateHalfOpen)
	}

	err := fn(ctx)

	from, to, changed := cb.record(err)
	if changed {
		cb.notify(from, to)
	}
	return err
}

// allow reports whether fn may run and whether this call moved the circuit
// from open to half-open.
func (cb *CircuitBreaker) allow() (probing, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != StateOpen {
		return false, true
	}
	if cb.now().Sub(cb.openedAt) < cb.timeout {
		return false, false
	}
	cb.state = StateHalfOpen
	cb.successCount = 0
	return true, true
}

func (cb *CircuitBreaker) record(err error) (from, to State, changed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	from = cb.state

	if err != nil && cb.counts(err) {
		cb.failureCount++
		if cb.state == StateHalfOpen || cb.failureCount >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
			cb.failureCount = 0
		}
		return from, cb.state, from != cb.state
	}
	if err != nil {
		return from, from, false
	}

	cb.failureCount = 0
	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = StateClosed
			cb.successCount = 0
		}
	}
	return from, cb.state, from != cb.state
}

func (cb *CircuitBreaker) counts(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if cb.isFailure == nil {
		return true
	}
	return cb.isFailure(err)
}

func (cb *CircuitBreaker) notify(from, to State) {
	if cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}

// State returns the current state (for metrics).
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
