package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/be4breach/reportd/internal/config"
	"github.com/be4breach/reportd/internal/core"
	"github.com/be4breach/reportd/internal/logger"
)

// Server exposes the report parsing pipeline over HTTP for the dashboard
// frontend. The store, cache, and telemetry are optional; the parser is not.
type Server struct {
	cfg       *config.Config
	logger    *logger.Logger
	parser    core.ReportParser
	store     core.ReportStore
	cache     core.ReportCache
	telemetry core.Telemetry

	httpServer *http.Server
}

func NewServer(cfg *config.Config, log *logger.Logger, parser core.ReportParser, opts ...ServerOption) *Server {
	s := &Server{
		cfg:    cfg,
		logger: log.WithComponent("api"),
		parser: parser,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ServerOption func(*Server)

func WithStore(store core.ReportStore) ServerOption {
	return func(s *Server) { s.store = store }
}

func WithCache(cache core.ReportCache) ServerOption {
	return func(s *Server) { s.cache = cache }
}

func WithTelemetry(t core.Telemetry) ServerOption {
	return func(s *Server) { s.telemetry = t }
}

// Router builds the gin engine with the full middleware chain.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggingMiddleware(s.logger))
	router.Use(CORSMiddleware(s.cfg.Server.CORSOrigins))
	router.Use(RateLimitMiddleware(s.cfg.Server.RateLimit))

	router.GET("/health", s.handleHealth)

	apiGroup := router.Group("/api")
	apiGroup.Use(AuthMiddleware(s.cfg.Server))
	{
		apiGroup.POST("/reports/pentest-report", s.handleUploadReport)
		apiGroup.GET("/reports", s.handleListReports)
		apiGroup.GET("/reports/:id", s.handleGetReport)
	}

	return router
}

// Start runs the HTTP server until the context is cancelled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("API server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Infow("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}
