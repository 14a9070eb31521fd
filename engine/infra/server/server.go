package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spiffworkflow/backend/engine/auth/openid"
	"github.com/spiffworkflow/backend/engine/infra/monitoring"
	"github.com/spiffworkflow/backend/engine/infra/server/appstate"
	"github.com/spiffworkflow/backend/engine/infra/server/router"
	"github.com/spiffworkflow/backend/engine/taskresult"
	"github.com/spiffworkflow/backend/pkg/config"
	"github.com/spiffworkflow/backend/pkg/logger"
)

const (
	monitoringShutdownTimeout = 5 * time.Second
	fallbackShutdownTimeout   = 5 * time.Second
	warmUpTimeout             = 30 * time.Second
)

type Server struct {
	cfg        *config.Config
	router     *gin.Engine
	monitoring *monitoring.Service
	state      *appstate.State
	ctx        context.Context
	cancel     context.CancelFunc
	httpServer *http.Server
	options    []taskresult.Option
}

// Option customizes server construction.
type Option func(*Server)

// WithResultOptions forwards options to the task result backends.
func WithResultOptions(opts ...taskresult.Option) Option {
	return func(s *Server) {
		s.options = append(s.options, opts...)
	}
}

// NewServer builds a server from the configuration attached to ctx.
func NewServer(ctx context.Context, opts ...Option) (*Server, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("configuration missing from context; attach a manager with config.ContextWithManager")
	}
	serverCtx, cancel := context.WithCancel(ctx)
	s := &Server{cfg: cfg, ctx: serverCtx, cancel: cancel}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.setup(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Server) setup() error {
	s.monitoring = monitoring.NewMonitoringServiceWithFallback(s.ctx, monitoring.FromAppConfig(s.cfg))
	endpoints := openid.NewEndpointCache(openid.FromAppConfig(s.cfg))
	results := taskresult.NewService(s.ctx, s.cfg, s.monitoring.Meter(), s.options...)
	state, err := appstate.NewState(appstate.NewBaseDeps(s.cfg, results, endpoints))
	if err != nil {
		return fmt.Errorf("failed to create app state: %w", err)
	}
	s.state = state
	s.buildRouter()
	return nil
}

func (s *Server) buildRouter() {
	log := logger.FromContext(s.ctx)
	r := gin.New()
	r.Use(gin.CustomRecovery(router.RecoveryHandler()))
	r.Use(RequestIDMiddleware(log))
	r.Use(LoggerMiddleware())
	if s.cfg.Server.CORSEnabled {
		r.Use(CORSMiddleware(s.cfg.Server.CORS))
	}
	r.Use(s.monitoring.GinMiddleware(s.ctx))
	r.Use(appstate.StateMiddleware(s.state))
	r.Use(router.ErrorHandler())
	RegisterRoutes(r, s.state, s.monitoring)
	s.router = r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives.
func (s *Server) Run() error {
	defer s.cleanup()
	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go s.warmUpEndpointCache(ctx)
	s.httpServer = s.createHTTPServer()
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%w: %w", router.ErrBindError, err)
		}
		close(errCh)
	}()
	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.FromContext(s.ctx).Debug("Received shutdown signal, initiating graceful shutdown")
	}
	return s.shutdown()
}

// Stop triggers a graceful shutdown of a running server.
func (s *Server) Stop() {
	s.cancel()
}

func (s *Server) createHTTPServer() *http.Server {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	logger.FromContext(s.ctx).Info("Starting HTTP server",
		"address", fmt.Sprintf("http://%s", addr),
		"api_prefix", s.cfg.Server.APIPrefix,
	)
	return &http.Server{
		Addr:         addr,
		Handler:      s.router,
		BaseContext:  func(net.Listener) context.Context { return s.ctx },
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
}

func (s *Server) shutdown() error {
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = fallbackShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), timeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.FromContext(s.ctx).Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) cleanup() {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), monitoringShutdownTimeout)
	defer cancel()
	if err := s.monitoring.Shutdown(ctx); err != nil {
		logger.FromContext(s.ctx).Warn("Monitoring shutdown failed", "error", err)
	}
}

func (s *Server) warmUpEndpointCache(ctx context.Context) {
	endpoints := s.state.Endpoints
	if !endpoints.Configured() {
		return
	}
	log := logger.FromContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, warmUpTimeout)
	defer cancel()
	if err := endpoints.WarmUp(ctx); err != nil {
		log.Warn("OpenID endpoint discovery failed; endpoints will be fetched on demand", "error", err)
		return
	}
	log.Info("OpenID endpoints cached", "identifier", s.cfg.Auth.Identifier)
}
