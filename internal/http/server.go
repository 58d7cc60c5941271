package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/deskclock/internal/observability"
)

// NewRouter wires the status endpoints. limiter guards POST /weather/refresh
// only; nil disables it.
func NewRouter(h *Handler, limiter *rate.Limiter, denials DenialRecorder, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.HandleFunc("/status", h.GetStatus).Methods("GET")
	router.HandleFunc("/frame.png", h.GetFrame).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(RateLimitMiddleware(limiter, denials))
	weatherRouter.HandleFunc("/refresh", h.PostRefresh).Methods("POST")
	return router
}

// Server runs the status surface next to the scheduler loop.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer returns a server for handler on addr (":8080").
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start listens in the background. The returned channel receives at most one
// error if the listener fails; it is closed when the server stops.
func (s *Server) Start() <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		s.logger.Info("status server starting", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	return errc
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	if n := InFlightCount(); n > 0 {
		s.logger.Info("waiting for in-flight requests", zap.Int64("count", n))
	}
	return WaitForInFlight(ctx, 10*time.Millisecond)
}
