// Package gateway exposes the configuration subsystem over HTTP: health and
// readiness queries, configuration export, Prometheus metrics, and a
// websocket stream of configuration change events.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/confkit/config"
	"github.com/c360/confkit/errors"
	"github.com/c360/confkit/health"
	"github.com/c360/confkit/metric"
)

// getOrGenerateRequestID extracts the request ID from headers or generates
// a new one so gateway responses correlate with structured logs
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}

	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// Server serves the read-only configuration endpoints. It never mutates
// manager state; every response is computed from deep-copied snapshots.
type Server struct {
	manager  *config.Manager
	assessor *health.Assessor
	registry *metric.Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader

	server  *http.Server
	running atomic.Bool

	// Counters exposed through Stats for operational visibility
	requestsTotal  atomic.Uint64
	requestsFailed atomic.Uint64
}

// NewServer creates a gateway over a manager. The assessor must share the
// validator environment the manager loads with, so health verdicts match
// what the manager enforced.
func NewServer(port int, manager *config.Manager, assessor *health.Assessor,
	registry *metric.Registry, logger *slog.Logger) *Server {

	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		manager:  manager,
		assessor: assessor,
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// Config events carry no secrets beyond what /config/export
				// already serves on the same listener
				return true
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/config/export", s.handleExport)
	mux.HandleFunc("/events", s.handleEvents)
	if registry != nil {
		mux.Handle("/metrics", registry.Handler())
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.withRequestID(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start begins serving. Blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.WrapInvalid(fmt.Errorf("gateway already running"), "Server", "Start", "check state")
	}
	s.logger.Info("Gateway listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop shuts the listener down gracefully
func (s *Server) Stop(timeout time.Duration) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Handler returns the configured handler, used directly by tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// withRequestID stamps every response with a request ID, applies CORS from
// the active configuration, and counts requests
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requestsTotal.Add(1)
		w.Header().Set("X-Request-ID", getOrGenerateRequestID(r))

		s.applyCORS(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// applyCORS applies CORS headers when the request origin is on the
// configured interfaces.web.corsOrigins list
func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	tree, err := s.manager.Snapshot()
	if err != nil {
		return
	}

	allowed := false
	for _, allowedOrigin := range tree.GetStringSlice("interfaces.web.corsOrigins", nil) {
		if allowedOrigin == "*" || allowedOrigin == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// handleHealth returns the health report of the active configuration.
// ?details=true includes the raw finding lists behind the scores.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result := s.manager.LastResult()
	if result == nil {
		s.writeError(w, http.StatusServiceUnavailable, "configuration not initialized")
		return
	}

	details := r.URL.Query().Get("details") == "true"
	report := s.assessor.FromResult(result, details)

	status := http.StatusOK
	if report.IsCritical() {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, report)
}

// readyResponse is the deployment-readiness contract
type readyResponse struct {
	Ready           bool     `json:"ready"`
	Blockers        []string `json:"blockers"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
	PortConflicts   []string `json:"port_conflicts"`
}

// handleReady returns the deployment-readiness verdict
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result := s.manager.LastResult()
	if result == nil {
		s.writeError(w, http.StatusServiceUnavailable, "configuration not initialized")
		return
	}

	report := s.assessor.FromResult(result, false)
	resp := readyResponse{
		Ready:           s.assessor.Readiness(result),
		Blockers:        result.Errors,
		Warnings:        result.Warnings,
		Recommendations: report.Recommendations,
		PortConflicts:   result.PortConflicts,
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

// handleExport renders the active tree as JSON or YAML
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	format := r.URL.Query().Get("format")
	data, err := s.manager.Export(format)
	if err != nil {
		switch {
		case errors.IsInvalid(err):
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		default:
			s.writeError(w, http.StatusServiceUnavailable, "configuration not initialized")
		}
		return
	}

	contentType := "application/json"
	if format == "yaml" {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.requestsFailed.Add(1)
	}
}

// handleEvents upgrades to websocket and streams configuration events as
// JSON documents until the client disconnects or the manager stops.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.requestsFailed.Add(1)
		s.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := s.manager.Subscribe()
	defer cancel()

	// Reader loop detects client disconnect; the websocket package requires
	// draining control frames even on a write-only stream
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Debug("Websocket write failed, dropping client", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON response body
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.requestsFailed.Add(1)
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.requestsFailed.Add(1)
	s.writeJSON(w, status, map[string]string{"error": message})
}
