package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/reader/internal/jwt"
	"github.com/jonesrussell/reader/internal/logger"
	"github.com/jonesrussell/reader/internal/metrics"
	"github.com/jonesrussell/reader/internal/ratelimit"
)

// Default timeout values. The write timeout is generous because streaming
// simplify responses stay open while the model produces tokens.
const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 5 * time.Minute
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	ServiceName    string
	ServiceVersion string
	Port           int
	Debug          bool
	JWTSecret      string
	CORSOrigins    []string
}

// Server is the reader HTTP server with lifecycle management.
type Server struct {
	router *gin.Engine
	server *http.Server
	log    logger.Logger
}

// NewServer builds the gin engine with the standard middleware stack,
// health and metrics endpoints, and the versioned API routes.
func NewServer(
	cfg ServerConfig,
	handler *Handler,
	m *metrics.Metrics,
	limiter *ratelimit.Limiter,
	checks map[string]HealthChecker,
	log logger.Logger,
) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(log))
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware(cfg.CORSOrigins))
	router.Use(LoggerMiddleware(log))
	router.Use(m.Middleware())

	RegisterHealthRoutes(router, cfg.ServiceName, cfg.ServiceVersion, checks)
	router.GET("/metrics", m.Handler())

	v1 := router.Group("/api/v1")
	if cfg.JWTSecret != "" {
		v1.Use(jwt.Middleware(cfg.JWTSecret))
	}
	if limiter != nil {
		v1.Use(limiter.Middleware())
	}

	v1.GET("/extract", handler.Extract)
	v1.POST("/extract", handler.Extract)
	v1.GET("/simplify", handler.Simplify)
	v1.POST("/simplify", handler.Simplify)
	v1.GET("/news", handler.News)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	return &Server{
		router: router,
		server: httpServer,
		log:    log,
	}
}

// Router returns the underlying gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the HTTP server, blocking until shutdown or error.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", logger.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}
