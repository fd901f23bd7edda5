package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"iot-monitor/internal/metrics"
)

// ServerConfig holds configuration for the dashboard server
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server is the dashboard HTTP server
type Server struct {
	config     ServerConfig
	controller Controller
	hub        *Hub
	metrics    *metrics.Metrics
}

// NewServer creates a server. m may be nil.
func NewServer(config ServerConfig, controller Controller, hub *Hub, m *metrics.Metrics) *Server {
	return &Server{
		config:     config,
		controller: controller,
		hub:        hub,
		metrics:    m,
	}
}

// Router returns the HTTP routes
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	// Not wrapped: the metrics recorder cannot hijack the connection
	r.Handle("/ws", s.hub).Methods("GET")
	r.Handle("/api/config", s.metrics.WrapHandler("/api/config", http.HandlerFunc(s.getConfig))).Methods("GET")
	r.Handle("/healthz", s.metrics.WrapHandler("/healthz", http.HandlerFunc(s.healthz))).Methods("GET")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	return r
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Dashboard: Error encoding response: %v", err)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Dashboard: Listening on %s", s.config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to serve dashboard: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Dashboard: Shutting down...")
	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down dashboard: %w", err)
	}
	return nil
}
