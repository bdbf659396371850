// Package server assembles the inventory HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/auth"
	"github.com/vyrodovalexey/inventory-tracker/internal/config"
	"github.com/vyrodovalexey/inventory-tracker/internal/handler"
	"github.com/vyrodovalexey/inventory-tracker/internal/middleware"
	"github.com/vyrodovalexey/inventory-tracker/internal/store"
)

// Server serves the REST API, the websocket feed and metrics.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
	config     *config.Config
	logger     *zap.Logger
	hub        *handler.Hub
}

// New creates a Server. hub may be nil to disable /ws; authenticator may be
// nil to disable authentication.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	items store.Store,
	hub *handler.Hub,
	authenticator auth.Authenticator,
) *Server {
	s := &Server{
		router: mux.NewRouter(),
		config: cfg,
		logger: logger,
		hub:    hub,
	}

	if hub != nil {
		hub.CheckOrigin(middleware.NewOriginPolicy(cfg.AllowedOrigins).Allows)
	}
	s.setupRoutes(items)
	s.handler = s.setupMiddleware(authenticator)
	s.httpServer = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s
}

func (s *Server) setupMiddleware(authenticator auth.Authenticator) http.Handler {
	cors := middleware.CORSOptions{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			auth.APIKeyHeader,
			middleware.RequestIDHeader,
		},
	}

	// Route-aware middleware runs inside the router.
	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}
	s.router.Use(mux.MiddlewareFunc(middleware.Auth(authenticator, s.logger)))

	// The rest also sees unmatched paths and preflight requests.
	return middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.CORS(cors),
	)(s.router)
}

func (s *Server) setupRoutes(items store.Store) {
	handler.NewItemsHandler(items, s.logger).RegisterRoutes(s.router)

	if s.hub != nil {
		s.hub.RegisterRoutes(s.router)
	}

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server",
		zap.String("address", ln.Addr().String()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server serve: %w", err)
	}
	return nil
}

// Shutdown closes websocket clients, then drains HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.hub != nil {
		s.hub.CloseAllConnections()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}
