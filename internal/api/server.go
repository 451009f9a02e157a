package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/hvpsu/internal/audit"
	"github.com/nerrad567/hvpsu/internal/infrastructure/config"
	"github.com/nerrad567/hvpsu/internal/infrastructure/logging"
	"github.com/nerrad567/hvpsu/internal/psu"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// WebSocket defaults applied when the config leaves a field unset.
const (
	defaultWSMaxMessageSize = 8192
	defaultWSPingInterval   = 30
	defaultWSPongTimeout    = 10
)

// Deps holds the dependencies required by the API server.
//
// AuditRepo, Gatherer and Hub are optional. Without AuditRepo /audit answers
// 503; without Gatherer /metrics is not mounted; without Hub the server
// creates its own on Start.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Metrics   config.MetricsConfig
	Service   config.ServiceConfig
	Logger    *logging.Logger
	Manager   *psu.Manager
	Status    *psu.StatusAggregator
	AuditRepo audit.Repository
	Gatherer  prometheus.Gatherer
	Hub       *Hub
	Version   string
}

// Server is the HTTP API server for hvpsu.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	metricsCfg  config.MetricsConfig
	service     config.ServiceConfig
	logger      *logging.Logger
	manager     *psu.Manager
	status      *psu.StatusAggregator
	auditRepo   audit.Repository
	gatherer    prometheus.Gatherer
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, manager, status aggregator)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Manager == nil {
		return nil, fmt.Errorf("psu manager is required")
	}
	if deps.Status == nil {
		deps.Status = psu.NewStatusAggregator(deps.Service.ID, deps.Manager)
	}

	ws := deps.WS
	if ws.MaxMessageSize <= 0 {
		ws.MaxMessageSize = defaultWSMaxMessageSize
	}
	if ws.PingInterval <= 0 {
		ws.PingInterval = defaultWSPingInterval
	}
	if ws.PongTimeout <= 0 {
		ws.PongTimeout = defaultWSPongTimeout
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      ws,
		secCfg:     deps.Security,
		metricsCfg: deps.Metrics,
		service:    deps.Service,
		logger:     deps.Logger,
		manager:    deps.Manager,
		status:     deps.Status,
		auditRepo:  deps.AuditRepo,
		gatherer:   deps.Gatherer,
		version:    deps.Version,
	}

	// Use externally-provided hub if available (needed when the telemetry
	// reporter also broadcasts through it).
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, or nil before Start.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routed HTTP handler without starting a listener.
// The WebSocket route needs a hub: inject one through Deps.Hub first.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
