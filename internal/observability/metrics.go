package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Status server request rate. Watch for: scrape gaps (device down).
	HTTPRequestsTotal *prometheus.CounterVec

	// Status server latency. Watch for: slow handlers stalling the frame endpoint.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent status requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Scheduler task fires. Watch for: a task whose rate drops to zero (stuck loop).
	TaskRunsTotal *prometheus.CounterVec

	// Task failures, including recovered panics.
	TaskErrorsTotal *prometheus.CounterVec

	// Task body duration. Watch for: weather poll p99 approaching the loop budget.
	TaskDuration *prometheus.HistogramVec

	// Weather API call rate by outcome label (see client.CategorizeError).
	WeatherAPICallsTotal *prometheus.CounterVec

	// Weather API latency per request. Watch for: p95 > 2s (upstream degradation).
	WeatherAPIDuration *prometheus.HistogramVec

	// Retry attempts for weather API. Watch for: high retries = unstable upstream.
	WeatherAPIRetriesTotal prometheus.Counter

	// Weather polls by result: success, failure, offline.
	WeatherPollsTotal *prometheus.CounterVec

	// Circuit breaker state: 0 closed, 1 open, 2 half-open.
	CircuitBreakerState prometheus.Gauge

	// Snapshot mirror writes by status.
	CacheMirrorWritesTotal *prometheus.CounterVec

	// Screen entries by screen name.
	ScreenTransitionsTotal *prometheus.CounterVec

	// 1 when the last network check succeeded.
	NetworkReachable prometheus.Gauge

	// 1 once the wall clock has been synced from NTP.
	ClockSynced prometheus.Gauge

	// Refresh requests denied by the rate limiter (429).
	RateLimitDeniedTotal prometheus.Counter

	snapshotAgeOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of status server requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "Status server latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of status server requests currently being served",
		},
	)
	TaskRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskRunsTotal",
			Help: "Total number of scheduler task fires",
		},
		[]string{"task"},
	)
	TaskErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskErrorsTotal",
			Help: "Total number of scheduler task failures and recovered panics",
		},
		[]string{"task"},
	)
	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskDurationSeconds",
			Help:    "Scheduler task body duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"task"},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of weather API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Weather API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WeatherAPIRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherApiRetriesTotal",
			Help: "Total number of retry attempts for weather API calls",
		},
	)
	WeatherPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherPollsTotal",
			Help: "Total number of weather polls by result",
		},
		[]string{"result"},
	)
	CircuitBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Weather API circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
	)
	CacheMirrorWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheMirrorWritesTotal",
			Help: "Total number of snapshot mirror writes by status",
		},
		[]string{"status"},
	)
	ScreenTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenTransitionsTotal",
			Help: "Total number of screen entries by screen",
		},
		[]string{"screen"},
	)
	NetworkReachable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "networkReachable",
			Help: "1 when the last network check succeeded",
		},
	)
	ClockSynced = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clockSynced",
			Help: "1 once the wall clock has been synced from NTP",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of refresh requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		TaskRunsTotal, TaskErrorsTotal, TaskDuration,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIRetriesTotal,
		WeatherPollsTotal, CircuitBreakerState, CacheMirrorWritesTotal,
		ScreenTransitionsTotal, NetworkReachable, ClockSynced,
		RateLimitDeniedTotal,
	)
}

// RegisterSnapshotAge registers a gauge reporting seconds since the last
// successful weather fetch. fetchedAt returns the zero time before the first
// fetch, which reports -1. Only the first call registers.
func RegisterSnapshotAge(fetchedAt func() time.Time) {
	snapshotAgeOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "weatherSnapshotAgeSeconds",
					Help: "Seconds since the last successful weather fetch; -1 before the first",
				},
				func() float64 { return snapshotAge(fetchedAt(), time.Now()) },
			),
		)
	})
}

func snapshotAge(fetchedAt, now time.Time) float64 {
	if fetchedAt.IsZero() {
		return -1
	}
	return now.Sub(fetchedAt).Seconds()
}

// RecordTask records one task fire.
func RecordTask(task string, d time.Duration, failed bool) {
	TaskRunsTotal.WithLabelValues(task).Inc()
	TaskDuration.WithLabelValues(task).Observe(d.Seconds())
	if failed {
		TaskErrorsTotal.WithLabelValues(task).Inc()
	}
}

// SetBool sets g to 1 or 0.
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
