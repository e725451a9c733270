package http

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/skylift/rotoreval/internal/closeout"
	"github.com/skylift/rotoreval/internal/pipeline"
)

// Server is the monitoring endpoint set: /health, /metrics, and
// /closeout/{case_id} serving the last gate report per case.
type Server struct {
	metrics  *MetricsRegistry
	registry *prometheus.Registry

	mu      sync.RWMutex
	reports map[string]closeout.GateReport
	started time.Time
}

// NewServer wires a fresh registry and report cache.
func NewServer() (*Server, error) {
	reg := prometheus.NewRegistry()
	metrics := NewMetricsRegistry()
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}
	return &Server{
		metrics:  metrics,
		registry: reg,
		reports:  make(map[string]closeout.GateReport),
		started:  time.Now(),
	}, nil
}

// Metrics returns the metric set for instrumenting pipelines.
func (s *Server) Metrics() *MetricsRegistry {
	return s.metrics
}

// RecordReport stores the latest gate report for a case and counts its
// verdict.
func (s *Server) RecordReport(rep closeout.GateReport) {
	s.mu.Lock()
	s.reports[rep.CaseID] = rep
	s.mu.Unlock()
	s.metrics.GateVerdict(rep.Verdict.String())
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/closeout/{case_id}", s.handleCloseout).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	n := len(s.reports)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	body := fmt.Sprintf(`{"status":"ok","cases":%d,"uptime_seconds":%d}`,
		n, int(time.Since(s.started).Seconds()))
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleCloseout(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	s.mu.RLock()
	rep, ok := s.reports[caseID]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, `{"error":"unknown case"}`, http.StatusNotFound)
		return
	}

	body, err := pipeline.GateReportJSON(&rep, false)
	if err != nil {
		http.Error(w, `{"error":"serialization failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// ListenAndServe blocks serving the monitor endpoints.
func (s *Server) ListenAndServe(addr string) error {
	log.Info().Str("addr", addr).Msg("monitor server listening")
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv.ListenAndServe()
}
