package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/ledger/pkg/clock"
	"mercator-hq/ledger/pkg/config"
	"mercator-hq/ledger/pkg/dashboard"
	"mercator-hq/ledger/pkg/records/retention"
	"mercator-hq/ledger/pkg/records/storage"
	"mercator-hq/ledger/pkg/server/tlsconfig"
	"mercator-hq/ledger/pkg/telemetry/health"
	"mercator-hq/ledger/pkg/telemetry/metrics"
)

// Services are the collaborators the HTTP surface delegates to. Stores is
// required; a nil Sweeper or Dashboard drops its routes.
type Services struct {
	Stores    *storage.Stores
	Sweeper   *retention.AuditSweeper
	Locker    retention.Locker
	Dashboard *dashboard.AuditDashboard
	Health    *health.Checker
	Metrics   *metrics.Collector
	Version   health.VersionInfo

	// Clock stamps created records and export file names. Default: clock.System.
	Clock clock.Clock
}

// Server is the ledger HTTP API server.
type Server struct {
	config   *config.Config
	services Services
	clock    clock.Clock
	location *time.Location
	handler  http.Handler
	logger   *slog.Logger

	// ctx bounds background work owned by the handler chain.
	ctx    context.Context
	cancel context.CancelFunc

	httpServer   *http.Server
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
	shutdownOnce sync.Once
}

// New creates a server. The handler chain is built immediately, so Handler
// is usable without Start.
func New(cfg *config.Config, services Services) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is required")
	}
	if services.Stores == nil {
		return nil, errors.New("stores are required")
	}
	if services.Clock == nil {
		services.Clock = clock.System{}
	}
	if services.Locker == nil {
		services.Locker = retention.NewLocalLocker()
	}

	loc, err := clock.LoadLocation(cfg.Server.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid default timezone: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   cfg,
		services: services,
		clock:    services.Clock,
		location: loc,
		logger:   slog.Default().With("component", "server"),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is cancelled
// or Shutdown is called, then drains in-flight requests for at most the
// configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}
	if tc := s.config.Server.TLS; tc.Enabled {
		ln, err = s.tlsListener(ln, tc)
		if err != nil {
			s.mu.Unlock()
			return err
		}
	}

	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return s.ctx },
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting ledger server",
			"address", ln.Addr().String(),
			"default_timezone", s.location.String(),
			"rate_limit", s.config.Server.RateLimit.Enabled,
			"tls", s.config.Server.TLS.Enabled,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case <-s.ctx.Done():
		return <-errCh
	case err, ok := <-errCh:
		if ok {
			s.markStopped()
			return err
		}
		return nil
	}
}

// tlsListener wraps ln with TLS. Certificates are reloaded until the server
// shuts down.
func (s *Server) tlsListener(ln net.Listener, tc config.TLSConfig) (net.Listener, error) {
	reloader := tlsconfig.NewReloader(tc.CertFile, tc.KeyFile, tc.ReloadInterval)
	if err := reloader.Start(s.ctx); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	tlsCfg, err := tlsconfig.ServerConfig(reloader, tc.MinVersion)
	if err != nil {
		ln.Close()
		return nil, err
	}
	return tls.NewListener(ln, tlsCfg), nil
}

// Shutdown gracefully stops the server. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		srv := s.httpServer
		s.mu.RUnlock()

		if srv != nil {
			s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

			shutdownCtx := ctx
			if s.config.Server.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				shutdownCtx, cancel = context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
				defer cancel()
			}
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.cancel()
		s.markStopped()
		s.logger.Info("ledger server stopped")
	})

	return shutdownErr
}

func (s *Server) markStopped() {
	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
