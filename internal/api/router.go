package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/hvpsu/internal/auth"
)

// defaultMetricsPath is used when the metrics config leaves Path empty.
const defaultMetricsPath = "/metrics"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check and metrics (no auth required)
	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		path := s.metricsCfg.Path
		if path == "" {
			path = defaultMetricsPath
		}
		r.Handle(path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Read routes
	r.Group(func(r chi.Router) {
		r.Use(s.requirePermission(auth.PermPSURead))

		r.Get("/", s.handleInfo)
		r.Get("/status", s.handleStatus)
		r.Get("/ws", s.handleWebSocket)
		r.Get("/{identity}/read", s.handleRead)
		r.Get("/{identity}/relay", s.handleGetRelay)
	})

	r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)

	// Commands that reach hardware
	r.Group(func(r chi.Router) {
		r.Use(s.requirePermission(auth.PermPSUOperate))

		r.Post("/teardown", s.handleTeardown)
		r.Post("/{identity}/connect", s.handleConnect)
		r.Post("/{identity}/set_voltage", s.handleSetVoltage)
		r.Post("/{identity}/set_current", s.handleSetCurrent)
		r.Post("/{identity}/relay", s.handleSetRelay)
	})

	return r
}
