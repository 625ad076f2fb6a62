// Package server hosts the process's ambient HTTP surface: health,
// readiness, and Prometheus metrics. spec.md §1 puts the rest of the
// HTTP transport and route wiring out of scope for the core, so this
// is deliberately thin — modeled on
// packages/agent-orchestrator/server.go's Server/engine/
// LoggerMiddleware shape, trimmed to the three ambient routes.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quantumlayer-dev/controlplane/internal/scheduler"
	"github.com/quantumlayer-dev/controlplane/internal/store"
)

// Server wraps a gin engine behind an http.Server so Start/Stop can
// drive graceful shutdown (packages/llm-router/cmd/main.go's pattern).
type Server struct {
	engine         *gin.Engine
	http           *http.Server
	logger         *zap.Logger
	store          store.Store
	schedulerState *scheduler.State
}

// New builds a Server listening on addr. schedulerState feeds the
// readiness endpoint's scheduling-request and gate-rejection counts;
// it may be nil in tests that only need the health route.
func New(addr string, st store.Store, schedulerState *scheduler.State, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggerMiddleware(logger))

	s := &Server{
		engine:         engine,
		logger:         logger,
		store:          st,
		schedulerState: schedulerState,
		http: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/ready", s.handleReady)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "controlplane",
	})
}

// handleReady probes the store so readiness reflects the one hard
// dependency the core cannot run without.
func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.store.GetConfigValue(ctx, "__readiness_probe__"); err != nil && err != store.ErrNotFound {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
		return
	}

	body := gin.H{"status": "ready"}
	if s.schedulerState != nil {
		snap := s.schedulerState.Analytics.Snapshot()
		body["scheduling_requests_total"] = snap.TotalRequests
		body["scheduling_gate_rejections"] = snap.GateRejections
	}
	if running, err := s.store.ListSagasByState(ctx, store.SagaRunning); err == nil {
		body["sagas_running"] = len(running)
	}
	c.JSON(http.StatusOK, body)
}

// Start runs the HTTP server until Stop is called or it fails.
func (s *Server) Start() error {
	s.logger.Info("starting control plane http server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
