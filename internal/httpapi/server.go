// Package httpapi serves the local JSON façade the presentation layer talks to.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/johnrirwin/socialfeed/internal/feed"
	"github.com/johnrirwin/socialfeed/internal/gateway"
	"github.com/johnrirwin/socialfeed/internal/interaction"
	"github.com/johnrirwin/socialfeed/internal/logging"
	"github.com/johnrirwin/socialfeed/internal/ratelimit"
	"github.com/johnrirwin/socialfeed/internal/session"
	"github.com/johnrirwin/socialfeed/internal/thread"
)

type Server struct {
	composer *feed.Composer
	tracker  *interaction.Tracker
	threads  *thread.Registry
	session  *session.Session
	backend  Backend
	logger   *logging.Logger
	server   *http.Server

	refreshLimiter ratelimit.RateLimiter
}

func New(composer *feed.Composer, tracker *interaction.Tracker, threads *thread.Registry, sess *session.Session, backend Backend, logger *logging.Logger) *Server {
	return &Server{
		composer: composer,
		tracker:  tracker,
		threads:  threads,
		session:  sess,
		backend:  backend,
		logger:   logger,
	}
}

// SetRefreshLimiter throttles POST /api/feed/refresh per client.
func (s *Server) SetRefreshLimiter(l ratelimit.RateLimiter) {
	s.refreshLimiter = l
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	feedAPI := NewFeedAPI(s.composer, s.tracker, s.backend, s.logger)
	feedAPI.refreshLimiter = s.refreshLimiter
	feedAPI.RegisterRoutes(mux, s.corsMiddleware)

	threadAPI := NewThreadAPI(s.threads, s.logger)
	threadAPI.RegisterRoutes(mux, s.corsMiddleware)

	sessionAPI := NewSessionAPI(s.session, s.backend, s.logger)
	sessionAPI.RegisterRoutes(mux, s.corsMiddleware)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// writeUpstreamError maps a failed backend call to a façade response.
func writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case gateway.IsUnauthorized(err):
		writeError(w, http.StatusUnauthorized, "unauthorized", "the backend rejected the session token")
	case errors.Is(err, gateway.ErrRequestFailed):
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
