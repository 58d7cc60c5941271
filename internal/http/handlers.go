package http

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/deskclock/internal/health"
	"github.com/kjstillabower/deskclock/internal/lifecycle"
	"github.com/kjstillabower/deskclock/internal/models"
	"github.com/kjstillabower/deskclock/internal/scheduler"
)

// SnapshotSource returns the current weather snapshot.
type SnapshotSource interface {
	Snapshot() models.WeatherSnapshot
}

// LoopStatus returns the last published scheduler status.
type LoopStatus interface {
	Status() scheduler.Status
}

// FrameSource returns a copy of the last rendered frame, or nil.
type FrameSource interface {
	Snapshot() *image.RGBA
}

// RefreshRequester queues a weather poll for the loop. It reports false when
// a request was already pending.
type RefreshRequester interface {
	RequestRefresh() bool
}

// Deps are the read-only views the handlers serve. Any field except Health
// may be nil; the matching endpoint then reports it as unavailable.
type Deps struct {
	Device      string
	Version     string
	Health      *health.Checker
	Weather     SnapshotSource
	Loop        LoopStatus
	Frames      FrameSource
	Refresh     RefreshRequester
	ClockSynced func() bool
	// CachePing, when set, is called to check mirror reachability.
	CachePing func() error
}

// Handler holds dependencies for the status endpoints. It never mutates loop
// state; refreshes are only requested.
type Handler struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time

	healthStatusMu   sync.Mutex
	healthStatusPrev health.State
}

// NewHandler returns a new Handler.
func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handler{deps: deps, logger: logger, now: time.Now}
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.deps.Health.Evaluate()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.State {
		h.logger.Info("health status transition",
			zap.String("previous_status", string(prev)),
			zap.String("current_status", string(result.State)),
			zap.String("reason", result.Reason))
	}
	h.healthStatusPrev = result.State
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": "healthy"}
	if result.State == health.Degraded {
		checks["weatherApi"] = "unhealthy"
	}
	if h.deps.Weather != nil && !h.deps.Weather.Snapshot().Valid {
		checks["weather"] = "pending"
	}
	if h.deps.ClockSynced != nil {
		if h.deps.ClockSynced() {
			checks["clock"] = "synced"
		} else {
			checks["clock"] = "fallback"
		}
	}
	if h.deps.CachePing != nil {
		if h.deps.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}

	now := h.now()
	resp := map[string]interface{}{
		"status":        result.State,
		"device":        h.deps.Device,
		"version":       h.deps.Version,
		"phase":         lifecycle.Current().String(),
		"uptimeSeconds": int64(lifecycle.Uptime(now).Seconds()),
		"checks":        checks,
		"timestamp":     now.UTC().Format(time.RFC3339),
	}
	if result.Reason != "" {
		resp["reason"] = result.Reason
	}
	status := http.StatusOK
	if !result.OK() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// statusResponse is the body of GET /status.
type statusResponse struct {
	Device    string                  `json:"device"`
	Phase     string                  `json:"phase"`
	Scheduler *scheduler.Status       `json:"scheduler,omitempty"`
	Weather   *models.WeatherSnapshot `json:"weather,omitempty"`
	Timestamp string                  `json:"timestamp"`
}

// GetStatus handles GET /status: scheduler counters and the current snapshot.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Device:    h.deps.Device,
		Phase:     lifecycle.Current().String(),
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}
	if h.deps.Loop != nil {
		st := h.deps.Loop.Status()
		resp.Scheduler = &st
	}
	if h.deps.Weather != nil {
		snap := h.deps.Weather.Snapshot()
		resp.Weather = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

// PostRefresh handles POST /weather/refresh. The poll runs on the loop at its
// next iteration; the response only acknowledges the request.
func (h *Handler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	if h.deps.Refresh == nil {
		writeError(w, r, http.StatusServiceUnavailable, "REFRESH_UNAVAILABLE", "Refresh is not wired")
		return
	}
	if lifecycle.IsShuttingDown() {
		writeError(w, r, http.StatusServiceUnavailable, "SHUTTING_DOWN", "Device is shutting down")
		return
	}
	queued := h.deps.Refresh.RequestRefresh()
	if logger, ok := r.Context().Value(loggerKey).(*zap.Logger); ok && logger != nil {
		logger.Debug("weather refresh requested", zap.Bool("queued", queued))
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted":       true,
		"alreadyPending": !queued,
	})
}

// GetFrame handles GET /frame.png: the last frame pushed to the panel.
func (h *Handler) GetFrame(w http.ResponseWriter, r *http.Request) {
	var frame *image.RGBA
	if h.deps.Frames != nil {
		frame = h.deps.Frames.Snapshot()
	}
	if frame == nil {
		writeError(w, r, http.StatusServiceUnavailable, "NO_FRAME", "Nothing rendered yet")
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		h.logger.Warn("frame encode failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "ENCODE_FAILED", "Unable to encode frame")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error body with code, message and the
// request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": correlationID(r),
		},
	})
}
