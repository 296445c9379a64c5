package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wordgarden/gateway/internal/config"
)

// Server runs the HTTP API until SIGINT/SIGTERM, then drains in-flight
// requests and runs the registered shutdown hooks in reverse order.
type Server struct {
	httpServer *http.Server
	hooks      []func()
}

// New builds the server. writeTimeout must exceed the slowest upstream call
// (the AI backend), otherwise generations are cut off mid-flight.
func New(cfg config.ServerConfig, handler http.Handler, writeTimeout time.Duration) *Server {
	if writeTimeout < 15*time.Second {
		writeTimeout = 15 * time.Second
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// OnShutdown registers fn to run after the HTTP server has stopped.
func (s *Server) OnShutdown(fn func()) {
	s.hooks = append(s.hooks, fn)
}

func (s *Server) Start() error {
	// Channel for shutdown signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel for server errors
	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		s.runHooks()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig)
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.runHooks()
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func (s *Server) runHooks() {
	for i := len(s.hooks) - 1; i >= 0; i-- {
		s.hooks[i]()
	}
}
