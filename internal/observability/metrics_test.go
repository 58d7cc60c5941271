package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	return w.Body.String()
}

// TestMetrics_Usable verifies that all metrics accept the label dimensions
// used by the scheduler, client, service and status server packages.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/health").Observe(0.01)
	WeatherAPICallsTotal.WithLabelValues("success").Inc()
	WeatherAPIDuration.WithLabelValues("success").Observe(0.1)
	WeatherPollsTotal.WithLabelValues("offline").Inc()
	CacheMirrorWritesTotal.WithLabelValues("error").Inc()
	ScreenTransitionsTotal.WithLabelValues("clock").Inc()
	CircuitBreakerState.Set(2)
}

func TestRecordTask(t *testing.T) {
	RecordTask("record-test", 3*time.Millisecond, false)
	RecordTask("record-test", time.Millisecond, true)

	body := scrape(t)
	for _, want := range []string{
		`taskRunsTotal{task="record-test"} 2`,
		`taskErrorsTotal{task="record-test"} 1`,
		`taskDurationSeconds_count{task="record-test"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestSetBool(t *testing.T) {
	SetBool(ClockSynced, true)
	if body := scrape(t); !strings.Contains(body, "clockSynced 1") {
		t.Error("clockSynced = 0 after SetBool(true), want 1")
	}
	SetBool(ClockSynced, false)
	if body := scrape(t); !strings.Contains(body, "clockSynced 0") {
		t.Error("clockSynced = 1 after SetBool(false), want 0")
	}
}

func TestSnapshotAge(t *testing.T) {
	now := time.Date(2026, 2, 8, 14, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		fetchedAt time.Time
		want      float64
	}{
		{"never fetched", time.Time{}, -1},
		{"ninety seconds", now.Add(-90 * time.Second), 90},
	}
	for _, tt := range tests {
		if got := snapshotAge(tt.fetchedAt, now); got != tt.want {
			t.Errorf("%s: snapshotAge() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	TaskRunsTotal.WithLabelValues("clock").Inc()
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "taskRunsTotal") {
		t.Error("MetricsHandler response should contain taskRunsTotal")
	}
}
