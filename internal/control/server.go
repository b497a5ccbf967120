// Package control exposes the monitor handle over HTTP: start, stop,
// status, health, and Prometheus metrics.
package control

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AtsuiOcha/overheat-punisher/internal/monitor"
)

// Server is the HTTP control surface for one monitor handle.
type Server struct {
	handle *monitor.Handle
	logger *log.Logger
	engine *gin.Engine

	// baseCtx is the parent of every worker started through the API.
	baseCtx context.Context
}

// NewServer creates a control server over the given handle.
func NewServer(baseCtx context.Context, handle *monitor.Handle, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		handle:  handle,
		logger:  logger,
		engine:  gin.New(),
		baseCtx: baseCtx,
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api/v1/monitor")
	api.POST("/start", s.start)
	api.POST("/stop", s.stop)
	api.GET("/status", s.status)
}

// Handler returns the HTTP handler; the caller owns the http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) start(c *gin.Context) {
	if err := s.handle.Start(s.baseCtx); err != nil {
		if errors.Is(err, monitor.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Println("monitor worker started via control API")
	c.JSON(http.StatusOK, s.handle.Status())
}

func (s *Server) stop(c *gin.Context) {
	if err := s.handle.Stop(); err != nil {
		if errors.Is(err, monitor.ErrNotRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Println("monitor worker stopped via control API")
	c.JSON(http.StatusOK, s.handle.Status())
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.handle.Status())
}
