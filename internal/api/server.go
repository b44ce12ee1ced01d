package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/coursebook-gateway/internal/audit"
	"github.com/nerrad567/coursebook-gateway/internal/auth"
	"github.com/nerrad567/coursebook-gateway/internal/broker"
	"github.com/nerrad567/coursebook-gateway/internal/completion"
	"github.com/nerrad567/coursebook-gateway/internal/downstream"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/config"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/metrics"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Tokens    *auth.TokenService
	Publisher broker.Publisher
	Pending   *pending.Registry
	Router    *completion.Router

	// Optional collaborators. A nil Documents or Counters answers the
	// matching read-through routes with 503; a nil Audit disables GET /audit;
	// a nil Metrics disables GET /metrics.
	Documents *downstream.DocumentStore
	Counters  *downstream.Counters
	Audit     audit.Repository
	Metrics   *metrics.Gateway

	Version string
}

// Server is the HTTP gateway.
//
// It manages the HTTP listener, routes, middleware, and the completion
// stream hub. The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	tokens    *auth.TokenService
	publisher broker.Publisher
	pending   *pending.Registry
	router    *completion.Router
	documents *downstream.DocumentStore
	counters  *downstream.Counters
	auditRepo audit.Repository
	metrics   *metrics.Gateway
	limiter   *ipRateLimiter
	version   string

	hub     *Hub
	handler http.Handler
	server  *http.Server
	cancel  context.CancelFunc // cancels background goroutines on Close()

	// background tracks best-effort stat publishes still in flight.
	background sync.WaitGroup
}

// New creates a new API server with the given dependencies and wires its
// completion hub into the router.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if deps.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if deps.Pending == nil {
		return nil, fmt.Errorf("pending registry is required")
	}
	if deps.Router == nil {
		return nil, fmt.Errorf("completion router is required")
	}

	logger := deps.Logger.With("component", "api")
	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    logger,
		tokens:    deps.Tokens,
		publisher: deps.Publisher,
		pending:   deps.Pending,
		router:    deps.Router,
		documents: deps.Documents,
		counters:  deps.Counters,
		auditRepo: deps.Audit,
		metrics:   deps.Metrics,
		limiter:   newIPRateLimiter(deps.Security.RateLimit),
		version:   deps.Version,
		hub:       NewHub(deps.WS, logger),
	}
	s.router.AddListener(s.hub)
	s.handler = s.buildRouter()

	return s, nil
}

// Handler returns the routed handler. It is usable without Start, which
// is how the tests drive the server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the completion stream hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the hub and the rate limiter sweeper, then launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	if s.limiter != nil {
		go s.limiter.run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.handler,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

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
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections. Suspended requests are only
// released once the pending registry is closed, so callers close the
// registry before the server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)
	s.background.Wait()
	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
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
