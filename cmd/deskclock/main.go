package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/physic"

	"github.com/kjstillabower/deskclock/internal/app"
	"github.com/kjstillabower/deskclock/internal/cache"
	"github.com/kjstillabower/deskclock/internal/circuitbreaker"
	"github.com/kjstillabower/deskclock/internal/client"
	"github.com/kjstillabower/deskclock/internal/clock"
	"github.com/kjstillabower/deskclock/internal/config"
	"github.com/kjstillabower/deskclock/internal/gui"
	"github.com/kjstillabower/deskclock/internal/health"
	httphandler "github.com/kjstillabower/deskclock/internal/http"
	"github.com/kjstillabower/deskclock/internal/lifecycle"
	"github.com/kjstillabower/deskclock/internal/network"
	"github.com/kjstillabower/deskclock/internal/observability"
	"github.com/kjstillabower/deskclock/internal/panel"
	"github.com/kjstillabower/deskclock/internal/scheduler"
	"github.com/kjstillabower/deskclock/internal/screen"
	"github.com/kjstillabower/deskclock/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	zone := time.FixedZone(zoneName(cfg.UTCOffset), int(cfg.UTCOffset.Seconds()))
	wall := clock.NewSoftClock(zone)
	if err := wall.SetFallback(time.Unix(cfg.FallbackEpoch, 0)); err != nil {
		logger.Warn("fallback time not applied", zap.Error(err))
	}
	syncer := clock.NewNTPSyncer(wall, cfg.NTPServer, cfg.NTPTimeout, logger)

	flusher, closePanel := openPanel(cfg.Panel, logger)

	tree := gui.NewTree(screen.Width, screen.Height, flusher, logger)
	tree.SetAnimationDuration(app.Millis(cfg.AnimationDuration))
	tree.SetAnimationStep(uint32(cfg.AnimationStep.Milliseconds()))
	screen.BuildLayout(tree)

	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		Timeout:          cfg.BreakerTimeout,
		IsFailure:        client.IsBreakerFailure,
		OnStateChange: func(from, to circuitbreaker.State) {
			observability.CircuitBreakerState.Set(float64(to))
			logger.Info("circuit breaker transition", zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
	weatherClient, err := client.NewWeatherAPIClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherLocation, client.Options{
		Timeout:        cfg.WeatherAPITimeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
		Breaker:        breaker,
	})
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	mirror, err := cache.NewMirror(cfg.CacheBackend, cfg.MemcachedAddrs, cfg.Device, cfg.MemcachedTimeout, cfg.MirrorTTL)
	if err != nil {
		logger.Fatal("snapshot mirror", zap.Error(err))
	}
	logger.Info("cache backend", zap.String("backend", cfg.CacheBackend))

	weatherCache := cache.NewWeatherCache()
	observability.RegisterSnapshotAge(weatherCache.FetchedAt)
	weatherService := service.NewWeatherService(weatherClient, weatherCache, mirror, cfg.MemcachedTimeout, logger)
	weatherService.SetPollDeadline(cfg.PollDeadline)

	tracker := health.NewTracker(cfg.HealthWindow)
	weatherService.SetOutcomeRecorder(tracker)
	checker := health.NewChecker(tracker, health.Thresholds{
		Window:             cfg.HealthWindow,
		DegradedFailurePct: cfg.DegradedFailurePct,
		OverloadDenials:    cfg.OverloadDenials,
	}, func() bool { return breaker.State() == circuitbreaker.StateOpen })

	machine := screen.New(tree, wall, weatherCache, cfg.IconSettle)
	prober := &network.PingProber{Host: cfg.ProbeHost, Timeout: cfg.ProbeTimeout, Logger: logger}
	if cfg.ProbeFallback != "" {
		prober.Fallback = network.DialProber{Addr: cfg.ProbeFallback, Timeout: cfg.ProbeTimeout}
	}
	monitor := network.NewMonitor(prober)

	sched := scheduler.New(clock.NewMonotonic(), tree.Pump, logger)
	sched.SetLoopDelay(cfg.LoopDelay)
	loop := app.New(sched, machine, monitor, syncer, weatherService, app.Periods{
		Network: app.Millis(cfg.NetworkPeriod),
		Clock:   app.Millis(cfg.ClockPeriod),
		Rotate:  app.Millis(cfg.RotatePeriod),
		Weather: app.Millis(cfg.WeatherPeriod),
	}, logger)

	var srv *httphandler.Server
	if cfg.StatusEnabled {
		deps := httphandler.Deps{
			Device:      cfg.Device,
			Version:     version,
			Health:      checker,
			Weather:     weatherCache,
			Loop:        sched,
			Frames:      tree,
			Refresh:     loop,
			ClockSynced: wall.Synced,
		}
		if mc, ok := mirror.(*cache.MemcachedMirror); ok {
			deps.CachePing = mc.Ping
		}
		limiter := rate.NewLimiter(rate.Limit(cfg.RefreshRPS), cfg.RefreshBurst)
		router := httphandler.NewRouter(httphandler.NewHandler(deps, logger), limiter, tracker, logger)
		srv = httphandler.NewServer(":"+cfg.StatusPort, router, logger)
		errc := srv.Start()
		go func() {
			if err, ok := <-errc; ok && err != nil {
				logger.Error("status server", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go monitor.Run(ctx, cfg.NetworkPeriod)

	logger.Info("deskclock starting",
		zap.String("version", version),
		zap.String("location", cfg.WeatherLocation),
		zap.String("panel", cfg.Panel.Driver),
		zap.Duration("weather_period", cfg.WeatherPeriod))
	loop.Run(ctx)

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("status server shutdown", zap.Error(err))
		}
	}
	if err := observability.FlushTelemetry(shutdownCtx, logger, closePanel, mirror.Close); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// openPanel returns the frame sink for the configured driver and its closer.
// A panel that fails to open degrades to headless so the status server and
// weather polling keep running.
func openPanel(pc config.PanelConfig, logger *zap.Logger) (gui.Flusher, func() error) {
	noop := func() error { return nil }
	if pc.Driver != "st7789" {
		logger.Info("panel disabled, rendering headless")
		return panel.Discard{}, noop
	}
	p, err := panel.Open(panel.Config{
		SPIPort:   pc.SPIPort,
		Frequency: physic.Frequency(pc.FrequencyHz) * physic.Hertz,
		DCPin:     pc.DCPin,
		RSTPin:    pc.RSTPin,
		BLPin:     pc.BLPin,
		Width:     pc.Width,
		Height:    pc.Height,
		XOffset:   pc.XOffset,
		YOffset:   pc.YOffset,
		Rotation:  pc.Rotation,
		Invert:    pc.Invert,
	})
	if err != nil {
		logger.Error("panel open failed, rendering headless", zap.Error(err))
		return panel.Discard{}, noop
	}
	if err := p.Backlight(true); err != nil {
		logger.Warn("backlight", zap.Error(err))
	}
	logger.Info("panel ready", zap.String("spi", pc.SPIPort), zap.Int64("hz", pc.FrequencyHz))
	return p, p.Close
}

// zoneName renders an offset as "UTC+05:30".
func zoneName(offset time.Duration) string {
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, int(offset.Hours()), int(offset.Minutes())%60)
}
