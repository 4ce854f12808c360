package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/fleetstats/config"
	"example.com/backstage/services/fleetstats/models"
)

// StatisticsReader is the read-side query over the fleet aggregate.
type StatisticsReader interface {
	ReadAggregate(ctx context.Context) (*models.FleetStatistics, error)
}

// Server is the HTTP server for the read-side API
type Server struct {
	cfg        config.Config
	router     *gin.Engine
	httpServer *http.Server
	stats      StatisticsReader
}

// NewServer creates a new API server
func NewServer(cfg config.Config, stats StatisticsReader) *Server {
	server := &Server{
		cfg:    cfg,
		router: gin.New(),
		stats:  stats,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes()

	return server
}

// setupMiddleware adds middleware to the router
func (s *Server) setupMiddleware() {
	// Add request ID middleware
	s.router.Use(RequestIDMiddleware())

	// Add CORS middleware
	if s.cfg.CorsEnabled {
		s.router.Use(CORSMiddleware())
	}

	// Add recovery middleware
	s.router.Use(gin.Recovery())

	// Add logging middleware
	s.router.Use(LoggingMiddleware())
}

// setupRoutes defines the API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	// Prometheus metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	v1 := s.router.Group("/api/v1")

	// Fleet routes
	fleetRoutes := v1.Group("/fleet")
	{
		fleetRoutes.GET("/statistics", s.getFleetStatistics)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPServerAddress,
		Handler: s.router,
	}

	log.Info().Msgf("HTTP server starting on %s", s.cfg.HTTPServerAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
