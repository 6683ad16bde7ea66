// Package api exposes the dashboard over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rovshanmuradov/pubprinter/internal/metrics"
	"github.com/rovshanmuradov/pubprinter/internal/monitor"
	"github.com/rovshanmuradov/pubprinter/internal/preflight"
	"github.com/rovshanmuradov/pubprinter/internal/storage"
	"go.uber.org/zap"
)

// Server is the dashboard HTTP API server.
type Server struct {
	monitor   *monitor.Service
	store     storage.Storage    // nil falls back to in-memory history
	preflight *preflight.Checker // nil disables POST /preflight
	metrics   *metrics.Collector // nil disables /metrics
	logger    *zap.Logger
	started   time.Time
}

// NewServer creates a new API server.
func NewServer(svc *monitor.Service, logger *zap.Logger) *Server {
	return &Server{
		monitor: svc,
		logger:  logger.Named("api"),
		started: time.Now(),
	}
}

// SetStorage enables persisted history.
func (s *Server) SetStorage(store storage.Storage) { s.store = store }

// SetPreflight enables mint preflight checks.
func (s *Server) SetPreflight(c *preflight.Checker) { s.preflight = c }

// EnableMetrics exposes the collector on /metrics and records request metrics.
func (s *Server) EnableMetrics(c *metrics.Collector) { s.metrics = c }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.requestLogger)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/alerts", s.handleAlerts)

		r.Route("/tokens", func(r chi.Router) {
			r.Get("/", s.handleListTokens)
			r.Route("/{symbol}", func(r chi.Router) {
				r.Get("/", s.handleGetToken)
				r.Get("/mint-info", s.handleMintInfo)
				r.Get("/batch-cost", s.handleBatchCost)
				r.Get("/profitability", s.handleProfitability)
				r.Get("/history", s.handleHistory)
				r.Post("/preflight", s.handlePreflight)
			})
		})
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	return r
}

// requestLogger logs each request and records it in the collector under
// its route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, route, status, time.Since(start))
		}
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"code":    status,
		},
	})
}

// corsMiddleware adds CORS headers for browser dashboards.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
