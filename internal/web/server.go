// Package web is the thin HTTP adapter over the batch orchestrator:
// multipart upload in, task snapshots and archives out. All semantics
// live below it; handlers only translate between HTTP and the
// programmatic job interface.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/docbatch/internal/batch"
	"github.com/liliang-cn/docbatch/internal/classify"
	"github.com/liliang-cn/docbatch/internal/config"
	"github.com/liliang-cn/docbatch/internal/storage"
	"github.com/liliang-cn/docbatch/pkg/log"
)

type Server struct {
	cfg          config.ServerConfig
	orchestrator *batch.Orchestrator
	classifier   *classify.Classifier
	cleaner      *storage.Cleaner
	layout       storage.Layout
	keepDays     int
	router       *gin.Engine
	logger       *slog.Logger
}

func NewServer(
	cfg config.ServerConfig,
	orchestrator *batch.Orchestrator,
	classifier *classify.Classifier,
	cleaner *storage.Cleaner,
	layout storage.Layout,
	keepDays int,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		classifier:   classifier,
		cleaner:      cleaner,
		layout:       layout,
		keepDays:     keepDays,
		router:       gin.New(),
		logger:       log.WithModule("web"),
	}
	s.router.Use(gin.Recovery(), s.requestLog())
	s.registerRoutes()
	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/batch/upload", s.handleUpload)
		v1.GET("/batch/status/:task_id", s.handleStatus)
		v1.GET("/batch/download/:task_id/:category", s.handleDownload)
		v1.POST("/analyze", s.handleAnalyze)
		v1.GET("/storage/info", s.handleStorageInfo)
		v1.POST("/storage/clean", s.handleStorageClean)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
