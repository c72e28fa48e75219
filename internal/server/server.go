// Package server exposes the matching service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/erranza/internal/catalog"
	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/questionnaire"
	"github.com/spigell/erranza/internal/service"
	"github.com/spigell/erranza/internal/session"
)

const shutdownTimeout = 10 * time.Second

// Matcher is the part of the service the HTTP API needs.
type Matcher interface {
	Match(ctx context.Context, sess *session.Session, respondentID string, opts service.Options) (*service.Report, error)
	MatchAnswers(ctx context.Context, sess *session.Session, respondentID string, raw questionnaire.RawResponse, opts service.Options) (*service.Report, error)
	Traits(ctx context.Context, respondentID string) (*service.TraitsReport, error)
	Destinations(ctx context.Context, override catalog.Config) (*destination.Catalog, []catalog.Status, error)
}

type Server struct {
	matcher Matcher
	logger  *zap.Logger
}

func New(matcher Matcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{matcher: matcher, logger: logger}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/health", s.Health)

	v1 := r.Group("/v1")
	v1.GET("/destinations", s.Destinations)
	v1.POST("/match", s.Match)
	v1.GET("/traits/:respondent", s.Traits)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, questionnaire.ErrNoResponse) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
