// Package statusserver exposes a node's health, build info, and
// connection-watch status over HTTP, plus an optional Prometheus
// scrape endpoint.
package statusserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hollowoak/sparkplug-edge/internal/buildinfo"
	"github.com/hollowoak/sparkplug-edge/internal/connwatch"
	"github.com/hollowoak/sparkplug-edge/internal/metrics"
	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
)

func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("statusserver: failed to write JSON response", "error", err)
	}
}

// Server is the node's health/status HTTP server.
type Server struct {
	address string
	port    int
	node    *sparkplug.Node
	watch   *connwatch.Manager
	logger  *slog.Logger
	server  *http.Server

	metricsEnabled bool
	metricsAddress string
	metricsPort    int
	metricsServer  *http.Server
}

// Config carries a Server's construction parameters.
type Config struct {
	Address        string
	Port           int
	MetricsEnabled bool
	MetricsAddress string
	MetricsPort    int
}

// NewServer creates a status server bound to node and watch.
func NewServer(cfg Config, node *sparkplug.Node, watch *connwatch.Manager, logger *slog.Logger) *Server {
	return &Server{
		address:        cfg.Address,
		port:           cfg.Port,
		node:           node,
		watch:          watch,
		logger:         logger,
		metricsEnabled: cfg.MetricsEnabled,
		metricsAddress: cfg.MetricsAddress,
		metricsPort:    cfg.MetricsPort,
	}
}

// Start begins serving HTTP requests. It blocks until the status
// server's ListenAndServe returns; the metrics server, when enabled,
// runs in its own goroutine.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /", s.handleRoot)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.withLogging(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if s.metricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("GET /metrics", metrics.Handler())
		s.metricsServer = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", s.metricsAddress, s.metricsPort),
			Handler:      metricsMux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			s.logger.Info("starting metrics server", "address", s.metricsAddress, "port", s.metricsPort)
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	s.logger.Info("starting status server", "address", s.address, "port", s.port)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops both HTTP servers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.metricsServer != nil {
		_ = s.metricsServer.Shutdown(ctx)
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"name": "sparkplug-edge", "status": "ok"}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildinfo.RuntimeInfo(), s.logger)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"active": s.node.IsActive(),
		"mode":   s.node.Mode().String(),
	}
	if s.watch != nil {
		status["brokers"] = s.watch.Status()
	}
	writeJSON(w, status, s.logger)
}
