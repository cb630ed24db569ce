// Package server exposes the optional admin API: health, Prometheus
// metrics, source catalog management, and on-demand ingestion triggers.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"quickelt/internal/catalog"
	"quickelt/internal/config"
	"quickelt/internal/model"
	"quickelt/internal/pipeline"
	"quickelt/pkg/response"
)

// Ingestor triggers landing runs by source name.
type Ingestor interface {
	RunByName(ctx context.Context, name string) ([]pipeline.RunResult, error)
}

// Server is the admin API server.
type Server struct {
	cfg      config.ServerConfig
	logger   *zap.Logger
	engine   *gin.Engine
	ingestor Ingestor
	repo     catalog.SourceRepository
}

// New builds the admin server. The catalog repository is optional; when
// nil the source management endpoints respond 503.
func New(cfg config.ServerConfig, logger *zap.Logger, registry *prometheus.Registry, ingestor Ingestor, repo catalog.SourceRepository) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(CorrelationID())
	if registry != nil {
		engine.Use(newHTTPMetrics(registry).Middleware())
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
		ingestor: ingestor,
		repo:     repo,
	}
	s.registerRoutes(registry)
	return s
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Run serves until the listener fails.
func (s *Server) Run() error {
	addr := s.cfg.Host + ":" + s.cfg.Port
	s.logger.Info("admin server listening", zap.String("addr", addr))
	return s.engine.Run(addr)
}

func (s *Server) registerRoutes(registry *prometheus.Registry) {
	s.engine.GET("/health", s.health)
	if registry != nil {
		s.engine.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	v1 := s.engine.Group("/api/v1")
	if s.cfg.EnableAuth {
		jwtManager := NewJWTManager(s.cfg.JWTSecret, 24*time.Hour)
		v1.Use(jwtManager.RequireAuth())
	}

	v1.POST("/ingest/:name", s.ingest)

	sources := v1.Group("/sources")
	sources.POST("", s.createSource)
	sources.GET("", s.listSources)
	sources.GET("/:id", s.getSource)
	sources.PUT("/:id", s.updateSource)
	sources.DELETE("/:id", s.deleteSource)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "quickelt",
		"timestamp": time.Now(),
	})
}

func (s *Server) ingest(c *gin.Context) {
	name := c.Param("name")
	results, err := s.ingestor.RunByName(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(
			response.CodeNotFound, err.Error(), correlationID(c)))
		return
	}

	failed := 0
	for _, run := range results {
		if run.Status == model.RunStatusFailure {
			failed++
		}
	}
	payload := gin.H{"source": name, "runs": len(results), "failed": failed}
	if failed > 0 {
		c.JSON(http.StatusInternalServerError, response.Error(
			response.CodeRunFailed, "one or more runs failed", correlationID(c)))
		return
	}
	c.JSON(http.StatusOK, response.Success(payload, correlationID(c)))
}

func (s *Server) catalogReady(c *gin.Context) bool {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, response.Error(
			response.CodeInternal, "source catalog is not enabled", correlationID(c)))
		return false
	}
	return true
}

func (s *Server) createSource(c *gin.Context) {
	if !s.catalogReady(c) {
		return
	}

	var src model.SourceDefinition
	if err := c.ShouldBindJSON(&src); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(
			response.CodeValidationFailed, err.Error(), correlationID(c)))
		return
	}
	if !model.IsValidSourceKind(string(src.Kind)) {
		c.JSON(http.StatusBadRequest, response.Error(
			response.CodeValidationFailed, "invalid source kind", correlationID(c)))
		return
	}

	if err := s.repo.Create(c.Request.Context(), &src); err != nil {
		s.logger.Error("failed to create source definition", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.Error(
			response.CodeInternal, "failed to create source definition", correlationID(c)))
		return
	}
	c.JSON(http.StatusCreated, response.Success(src, correlationID(c)))
}

func (s *Server) listSources(c *gin.Context) {
	if !s.catalogReady(c) {
		return
	}

	sources, total, err := s.repo.GetAll(c.Request.Context(), 100, 0)
	if err != nil {
		s.logger.Error("failed to list source definitions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.Error(
			response.CodeInternal, "failed to list source definitions", correlationID(c)))
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{
		"sources": sources,
		"total":   total,
	}, correlationID(c)))
}

func (s *Server) getSource(c *gin.Context) {
	if !s.catalogReady(c) {
		return
	}

	src, err := s.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrSourceNotFound) {
			c.JSON(http.StatusNotFound, response.Error(
				response.CodeNotFound, "source definition not found", correlationID(c)))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(
			response.CodeInternal, "failed to get source definition", correlationID(c)))
		return
	}
	c.JSON(http.StatusOK, response.Success(src, correlationID(c)))
}

func (s *Server) updateSource(c *gin.Context) {
	if !s.catalogReady(c) {
		return
	}

	existing, err := s.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrSourceNotFound) {
			c.JSON(http.StatusNotFound, response.Error(
				response.CodeNotFound, "source definition not found", correlationID(c)))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(
			response.CodeInternal, "failed to get source definition", correlationID(c)))
		return
	}

	var src model.SourceDefinition
	if err := c.ShouldBindJSON(&src); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(
			response.CodeValidationFailed, err.Error(), correlationID(c)))
		return
	}
	src.ID = existing.ID
	src.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(c.Request.Context(), &src); err != nil {
		s.logger.Error("failed to update source definition", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.Error(
			response.CodeInternal, "failed to update source definition", correlationID(c)))
		return
	}
	c.JSON(http.StatusOK, response.Success(src, correlationID(c)))
}

func (s *Server) deleteSource(c *gin.Context) {
	if !s.catalogReady(c) {
		return
	}

	if err := s.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.logger.Error("failed to delete source definition", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.Error(
			response.CodeInternal, "failed to delete source definition", correlationID(c)))
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("source definition deleted", correlationID(c)))
}
