// Package server exposes the dispatcher over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"zentaohelper/internal/logging"
	"zentaohelper/internal/types"
)

// Executor runs utterances. *skill.Skill satisfies it.
type Executor interface {
	Execute(ctx context.Context, text string) types.Response
	HelpText() string
}

// Server is the gin front end.
type Server struct {
	exec   Executor
	router *gin.Engine
	// mu serializes utterances; the dispatcher handles one at a time.
	mu sync.Mutex
}

type commandRequest struct {
	Text string `json:"text" binding:"required"`
}

// New builds the router.
func New(exec Executor) *Server {
	s := &Server{exec: exec, router: gin.New()}
	s.router.Use(gin.Recovery(), requestLogger())

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/help", s.help)
		v1.POST("/commands", s.command)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) help(c *gin.Context) {
	c.JSON(http.StatusOK, types.OK(types.Payload{Message: s.exec.HelpText(), Type: "help"}))
}

func (s *Server) command(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.Fail(types.Wrap(types.CodeInvalidParameter, err, "请求体必须是包含 text 字段的 JSON")))
		return
	}

	s.mu.Lock()
	resp := s.exec.Execute(c.Request.Context(), req.Text)
	s.mu.Unlock()

	c.JSON(http.StatusOK, resp)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Get(logging.CategoryServer).With(
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		).Info("request")
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Server("listening on %s", addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ServerError("shutdown: %v", err)
		return err
	}
	logging.Server("server stopped")
	return <-errCh
}
