// Package server wires the inventory API into an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/item-management/internal/auth"
	"github.com/vyrodovalexey/item-management/internal/config"
	"github.com/vyrodovalexey/item-management/internal/handler"
	"github.com/vyrodovalexey/item-management/internal/inventory"
	"github.com/vyrodovalexey/item-management/internal/middleware"
)

// Server represents the HTTP server and its optional health listener.
type Server struct {
	httpServer    *http.Server
	healthServer  *http.Server
	router        *mux.Router
	config        *config.Config
	logger        *zap.Logger
	authenticator auth.Authenticator
	restHandler   *handler.RESTHandler
	wsHandler     *handler.WebSocketHandler
}

// New creates a Server for svc. A nil authenticator disables authentication.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	svc *inventory.Service,
	authenticator auth.Authenticator,
) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		config:        cfg,
		logger:        logger,
		authenticator: authenticator,
	}

	s.setupMiddleware()
	s.setupRoutes(svc)
	s.setupHTTPServer()

	return s
}

// setupMiddleware installs the chain; the first one added is the outermost.
func (s *Server) setupMiddleware() {
	allowedMethods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowedHeaders := []string{
		"Content-Type",
		"Authorization",
		auth.APIKeyHeader,
		middleware.RequestIDHeader,
	}

	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
	}
	if s.config.MetricsEnabled {
		chain = append(chain, middleware.Metrics())
	}
	chain = append(chain,
		middleware.Logging(s.logger),
		middleware.CORS(s.config.CORSAllowedOrigins, allowedMethods, allowedHeaders),
	)
	if s.authenticator != nil {
		chain = append(chain, middleware.Auth(s.authenticator, s.logger))
	}
	if s.config.RateLimitEnabled() {
		chain = append(chain, middleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst, s.logger))
	}

	for _, m := range chain {
		s.router.Use(mux.MiddlewareFunc(m))
	}
}

func (s *Server) setupRoutes(svc *inventory.Service) {
	s.restHandler = handler.NewRESTHandler(svc, s.logger)
	s.restHandler.RegisterRoutes(s.router)

	s.wsHandler = handler.NewWebSocketHandler(svc, s.logger)
	s.wsHandler.RegisterRoutes(s.router)
	svc.Subscribe(s.wsHandler)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	// mux runs middleware only for matched routes; this gives every CORS
	// preflight a match so the CORS middleware can answer it. A MatcherFunc
	// rather than Methods keeps other unknown requests at 404 instead of 405.
	s.router.MatcherFunc(isPreflight).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func isPreflight(r *http.Request, _ *mux.RouteMatch) bool {
	return r.Method == http.MethodOptions
}

func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	if s.config.HealthPort == 0 {
		return
	}

	healthRouter := mux.NewRouter()
	healthRouter.Use(
		mux.MiddlewareFunc(middleware.Recovery(s.logger)),
		mux.MiddlewareFunc(middleware.Logging(s.logger)),
	)
	s.restHandler.RegisterHealthRoutes(healthRouter)

	s.healthServer = &http.Server{
		Addr:              s.config.HealthAddress(),
		Handler:           healthRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}

// Start serves until Shutdown is called. With TLS enabled the main listener
// serves HTTPS; the health listener is always plain HTTP.
func (s *Server) Start() error {
	authMode := string(auth.AuthMethodNone)
	if s.authenticator != nil {
		authMode = string(s.authenticator.Method())
	}

	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.String("auth_mode", authMode),
		zap.Bool("rate_limit_enabled", s.config.RateLimitEnabled()),
		zap.Bool("tls_enabled", s.config.TLSEnabled),
		zap.Int("health_port", s.config.HealthPort),
	)

	if s.config.TLSEnabled {
		tlsCfg, err := buildTLSConfig(s.config)
		if err != nil {
			return fmt.Errorf("configuring TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsCfg
	}

	if s.healthServer != nil {
		go s.serveHealth()
	}

	var err error
	if s.config.TLSEnabled {
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

func (s *Server) serveHealth() {
	s.logger.Info("starting health server", zap.String("address", s.config.HealthAddress()))

	if err := s.healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("health server failed", zap.Error(err))
	}
}

// Shutdown closes the live feed first, then drains HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.wsHandler != nil {
		s.wsHandler.CloseAllConnections()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if s.healthServer != nil {
		if err := s.healthServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("health server shutdown: %w", err)
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router.
func (s *Server) Router() *mux.Router {
	return s.router
}
