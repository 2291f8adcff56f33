package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server provides HTTP endpoints for monitoring a store.
type Server struct {
	collector *MetricsCollector
	registry  *prometheus.Registry
	server    *http.Server
	listener  net.Listener
}

// NewMonitoringServer creates a server on addr exposing the collector:
// /metrics in prometheus format, /summary and /health as JSON.
func NewMonitoringServer(collector *MetricsCollector, addr string) (*Server, error) {
	registry := prometheus.NewRegistry()
	exporter := NewCollector("lazystore")
	if err := registry.Register(exporter); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	collector.Attach(exporter)

	mux := http.NewServeMux()
	ms := &Server{
		collector: collector,
		registry:  registry,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second, //nolint:mnd // Standard timeout value
		},
	}

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/summary", ms.handleSummary)
	mux.HandleFunc("/health", ms.handleHealth)

	return ms, nil
}

// Handler returns the HTTP handler of the server
func (ms *Server) Handler() http.Handler {
	return ms.server.Handler
}

// Start listens on the configured address and serves in the background.
// It returns once the listener is bound.
func (ms *Server) Start() error {
	ln, err := net.Listen("tcp", ms.server.Addr)
	if err != nil {
		return err
	}
	ms.listener = ln
	go func() {
		_ = ms.server.Serve(ln)
	}()
	return nil
}

// Addr returns the bound address once started
func (ms *Server) Addr() string {
	if ms.listener == nil {
		return ms.server.Addr
	}
	return ms.listener.Addr().String()
}

// Stop shuts the server down, waiting for active requests until ctx ends.
func (ms *Server) Stop(ctx context.Context) error {
	err := ms.server.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (ms *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ms.collector.GetSummary()); err != nil {
		http.Error(w, "Failed to encode summary", http.StatusInternalServerError)
		return
	}
}

func (ms *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"enabled":   ms.collector.IsEnabled(),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode health status", http.StatusInternalServerError)
		return
	}
}
