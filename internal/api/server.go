package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/clinic-auth/internal/audit"
	"github.com/nerrad567/clinic-auth/internal/auth"
	"github.com/nerrad567/clinic-auth/internal/guard"
	"github.com/nerrad567/clinic-auth/internal/infrastructure/config"
	"github.com/nerrad567/clinic-auth/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every infrastructure client the health
// endpoint reports on.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionReporter reports whether a broker connection is up.
type ConnectionReporter interface {
	IsConnected() bool
}

// DBStatser exposes connection pool statistics.
type DBStatser interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Auth     *auth.Service
	Routes   *guard.Table     // defaults to guard.DefaultTable()
	Audit    audit.Repository // optional; GET /admin/audit reports 404 without it

	// Health maps a component name to its checker for GET /health.
	Health map[string]HealthChecker

	// Optional sources for GET /metrics.
	MQTT     ConnectionReporter
	Database DBStatser

	Version string
}

// Server is the HTTP API server for clinicauth.
//
// It owns the router, the WebSocket hub and the ticket store. Build it
// with New and serve it with Run.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	auth      *auth.Service
	routes    *guard.Table
	audit     audit.Repository
	health    map[string]HealthChecker
	mqtt      ConnectionReporter
	db        DBStatser
	version   string
	startTime time.Time

	hub     *Hub
	tickets *ticketStore
	handler http.Handler
}

// New creates a new API server with the given dependencies.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	routes := deps.Routes
	if routes == nil {
		routes = guard.DefaultTable()
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		auth:      deps.Auth,
		routes:    routes,
		audit:     deps.Audit,
		health:    deps.Health,
		mqtt:      deps.MQTT,
		db:        deps.Database,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(deps.WS, deps.Logger),
		tickets:   newTicketStore(),
	}
	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
// Auth state changes are relayed to WebSocket clients while it runs.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe := s.relayAuthChanges()
	defer unsubscribe()

	go s.hub.Run(srvCtx)
	go s.tickets.cleanLoop(srvCtx, s.ticketTTL())

	server := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", listener.Addr().String(),
				"cert", s.cfg.TLS.CertFile,
			)
			err = server.ServeTLS(listener, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", listener.Addr().String())
			err = server.Serve(listener)
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("API server shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

func (s *Server) ticketTTL() time.Duration {
	if s.secCfg.JWT.TicketTTL <= 0 {
		return time.Minute
	}
	return time.Duration(s.secCfg.JWT.TicketTTL) * time.Second
}
