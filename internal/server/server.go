// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scholarloop/scholarloop/internal/logger"
	"github.com/scholarloop/scholarloop/internal/pipeline"
	"github.com/scholarloop/scholarloop/internal/store"
)

type Config struct {
	Addr string `yaml:"addr"`
	// AllowOrigins lists CORS origins; empty allows any origin.
	AllowOrigins    []string      `yaml:"allow_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// Mode is gin's mode: debug, release or test.
	Mode string `yaml:"mode"`
}

func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ShutdownTimeout: 15 * time.Second,
		Mode:            gin.ReleaseMode,
	}
}

type Server struct {
	Engine   *gin.Engine
	cfg      Config
	pipeline *pipeline.Pipeline
	ping     func(ctx context.Context) error
	log      *logger.Logger
}

func New(cfg Config, p *pipeline.Pipeline, st *store.Store, log *logger.Logger) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		ping: func(ctx context.Context) error {
			sqlDB, err := st.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		log: log.With("component", "http"),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(traceContext())
	r.Use(requestLogger(s.log))
	r.Use(corsMiddleware(cfg.AllowOrigins))

	r.GET("/healthz", s.healthz)

	api := r.Group("/api/v1")
	api.Use(requireUser(st.Accounts))
	{
		api.POST("/students/:id/profile", s.generateProfile)
		api.GET("/students/:id/profile", s.getProfile)
		api.POST("/students/:id/roadmap", s.generateRoadmap)
		api.GET("/students/:id/roadmap", s.getRoadmap)
		api.POST("/students/:id/quizzes", s.generateQuiz)
		api.GET("/students/:id/memory", s.getMemorySummary)

		api.POST("/worksheets", s.generateWorksheet)
		api.POST("/worksheets/:id/grade", s.gradeWorksheet)

		api.POST("/assessments", s.startAssessment)
		api.POST("/assessments/:id/submit", s.submitAssessment)

		api.POST("/quizzes/:id/grade", s.gradeQuiz)
	}

	s.Engine = r
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
