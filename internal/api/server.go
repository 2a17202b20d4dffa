// Package api exposes the interpretation engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pft-interpreter-server/internal/domain"
	"github.com/pft-interpreter-server/internal/feedback"
	"github.com/pft-interpreter-server/internal/middleware"
	"github.com/pft-interpreter-server/internal/report"
	"github.com/pft-interpreter-server/internal/service"
)

const serverVersion = "1.1.0"

// Server represents the HTTP server
type Server struct {
	logger      *logrus.Logger
	config      *domain.Config
	interpreter *service.Interpreter
	generator   *report.Generator
	reviews     feedback.Store
	router      *gin.Engine
	server      *http.Server
}

// NewServer creates a new HTTP server instance. The feedback store may be
// nil, in which case the review endpoints report the store as unavailable.
func NewServer(logger *logrus.Logger, cfg *domain.Config, interpreter *service.Interpreter, generator *report.Generator, reviews feedback.Store) *Server {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	server := &Server{
		logger:      logger,
		config:      cfg,
		interpreter: interpreter,
		generator:   generator,
		reviews:     reviews,
		router:      router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router exposes the gin engine, mainly for handler tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// HTML-form compatibility endpoint
	s.router.POST("/interpret-form", s.handleInterpretForm)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/interpret", s.handleInterpret)
		v1.POST("/reviews", s.handleSaveReview)
		v1.GET("/reviews/stats", s.handleReviewStats)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   serverVersion,
	})
}

func (s *Server) requestID(c *gin.Context) string {
	if v, ok := c.Get("correlation_id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
