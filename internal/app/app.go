// Package app wires the display's periodic work onto the scheduler: network
// checks, the clock face, screen rotation and weather polls.
package app

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/deskclock/internal/lifecycle"
	"github.com/kjstillabower/deskclock/internal/observability"
	"github.com/kjstillabower/deskclock/internal/scheduler"
	"github.com/kjstillabower/deskclock/internal/screen"
)

// Task names, also used as metric labels.
const (
	TaskNetwork = "network"
	TaskClock   = "clock"
	TaskRotate  = "rotate"
	TaskWeather = "weather"
)

// Periods are the task periods in milliseconds.
type Periods struct {
	Network uint32
	Clock   uint32
	Rotate  uint32
	Weather uint32
}

// DefaultPeriods returns the stock schedule.
func DefaultPeriods() Periods {
	return Periods{
		Network: scheduler.NetworkPeriod,
		Clock:   scheduler.ClockPeriod,
		Rotate:  scheduler.RotatePeriod,
		Weather: scheduler.WeatherPeriod,
	}
}

// Millis converts d to a scheduler period, clamped to at least 1 ms.
func Millis(d time.Duration) uint32 {
	ms := d.Milliseconds()
	switch {
	case ms < 1:
		return 1
	case ms > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(ms)
}

// Display is the screen state machine as driven by the loop.
type Display interface {
	Enter(id screen.ID)
	Rotate() screen.ID
	Tick()
}

// Reachability reports network state. Check is called once per network
// period and must not block; Online returns the cached result.
type Reachability interface {
	Check(ctx context.Context) (online, first bool)
	Online() bool
}

// TimeSyncer sets the wall clock from the network. Sync blocks on the
// network, so the loop runs it on a background goroutine.
type TimeSyncer interface {
	Sync(ctx context.Context) error
	Synced() bool
}

// Poller runs one weather poll.
type Poller interface {
	Refresh(ctx context.Context, online bool) error
}

// App owns the task bodies. They run on the scheduler goroutine; only
// RequestRefresh and the time sync run elsewhere.
type App struct {
	sched   *scheduler.Scheduler
	display Display
	net     Reachability
	syncer  TimeSyncer
	poller  Poller
	logger  *zap.Logger

	refreshRequested atomic.Bool
	syncing          atomic.Bool
	background       sync.WaitGroup
}

// New registers the four tasks on sched in evaluation order: network, clock,
// rotate, weather. Network runs first so an online edge can trigger the
// weather poll in the same iteration.
func New(sched *scheduler.Scheduler, display Display, net Reachability, syncer TimeSyncer, poller Poller, p Periods, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		sched:   sched,
		display: display,
		net:     net,
		syncer:  syncer,
		poller:  poller,
		logger:  logger,
	}
	sched.Add(scheduler.Task{Name: TaskNetwork, Period: p.Network, Run: a.checkNetwork})
	sched.Add(scheduler.Task{Name: TaskClock, Period: p.Clock, Run: a.tickClock})
	sched.Add(scheduler.Task{Name: TaskRotate, Period: p.Rotate, Run: a.rotate})
	sched.Add(scheduler.Task{Name: TaskWeather, Period: p.Weather, Run: a.pollWeather})
	return a
}

// RequestRefresh asks for a weather poll at the next network check. Safe to
// call from any goroutine. It reports false when a request is already
// pending.
func (a *App) RequestRefresh() bool {
	return a.refreshRequested.CompareAndSwap(false, true)
}

// Run draws the first screen and loops until ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	a.display.Enter(screen.Clock)
	observability.ScreenTransitionsTotal.WithLabelValues(screen.Clock.String()).Inc()
	lifecycle.MarkRunning(time.Now())
	a.sched.Run(ctx)
	a.background.Wait()
}

func (a *App) checkNetwork(ctx context.Context) error {
	online, first := a.net.Check(ctx)
	observability.SetBool(observability.NetworkReachable, online)
	if first {
		a.logger.Info("network online")
		a.sched.Trigger(TaskWeather)
	}
	if a.refreshRequested.CompareAndSwap(true, false) {
		a.logger.Debug("weather refresh requested")
		a.sched.Trigger(TaskWeather)
	}
	if online && a.syncer != nil && !a.syncer.Synced() {
		a.startSync(ctx)
	}
	return nil
}

// startSync runs one time sync off the loop. A sync already in flight is not
// doubled; a failed one is retried by a later network check.
func (a *App) startSync(ctx context.Context) {
	if !a.syncing.CompareAndSwap(false, true) {
		return
	}
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		defer a.syncing.Store(false)
		err := a.syncer.Sync(ctx)
		observability.SetBool(observability.ClockSynced, a.syncer.Synced())
		if err != nil {
			a.logger.Warn("clock sync failed", zap.Error(err))
		}
	}()
}

func (a *App) tickClock(context.Context) error {
	a.display.Tick()
	return nil
}

func (a *App) rotate(context.Context) error {
	id := a.display.Rotate()
	observability.ScreenTransitionsTotal.WithLabelValues(id.String()).Inc()
	return nil
}

func (a *App) pollWeather(ctx context.Context) error {
	return a.poller.Refresh(ctx, a.net.Online())
}
