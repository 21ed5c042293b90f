// Package httpserver exposes the HTTP surface of the routing engine: health,
// readiness, Prometheus metrics, the swagger UI, and the agent/publisher API
// routes (publish, query, register, unregister, events), whose requests it
// decodes and hands to the context-engine-service HTTP adapter's Handler.
package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	httpadapter "contex/contexts/context-routing/context-engine-service/adapters/http"
)

// HealthChecker is satisfied by the degradation controller; kept as a narrow
// interface here so httpserver never imports a context-routing service
// directly.
type HealthChecker interface {
	Mode() string
}

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	health HealthChecker
}

func New(engine httpadapter.Handler, health HealthChecker, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		health: health,
	}
	s.registerRoutes()
	s.registerContextEngineRoutes(engine)
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	mode := "unknown"
	if s.health != nil {
		mode = s.health.Mode()
	}
	status := http.StatusOK
	if mode == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"degradation_mode": mode})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
