// Package server provides HTTP server utilities
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lcrostarosa/lastword/internal/logging"
)

// ShutdownTimeout is the default timeout for graceful shutdown
const ShutdownTimeout = 5 * time.Second

// GracefulServer wraps an http.Server with graceful shutdown capabilities
type GracefulServer struct {
	server       *http.Server
	listener     net.Listener
	timeout      time.Duration
	beforeStop   func()
	shutdownHook func()
}

// GracefulServerOptions configures a GracefulServer
type GracefulServerOptions struct {
	// BeforeStop is called before initiating shutdown (e.g., stop scheduler)
	BeforeStop func()
	// ShutdownHook is called after server shutdown completes
	ShutdownHook func()
	// Listener, when set, is served instead of listening on server.Addr
	Listener net.Listener
	// Timeout overrides ShutdownTimeout
	Timeout time.Duration
}

// NewGracefulServer creates a server wrapper with graceful shutdown
func NewGracefulServer(server *http.Server, opts *GracefulServerOptions) *GracefulServer {
	gs := &GracefulServer{server: server, timeout: ShutdownTimeout}
	if opts != nil {
		gs.beforeStop = opts.BeforeStop
		gs.shutdownHook = opts.ShutdownHook
		gs.listener = opts.Listener
		if opts.Timeout > 0 {
			gs.timeout = opts.Timeout
		}
	}
	return gs
}

// ListenAndServe starts the server and handles graceful shutdown on SIGINT/SIGTERM.
// This is a blocking call that returns when the server has been shut down.
func (gs *GracefulServer) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return gs.Serve(ctx)
}

// Serve runs the server until ctx is done, then shuts it down gracefully
func (gs *GracefulServer) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if gs.listener != nil {
			err = gs.server.Serve(gs.listener)
		} else {
			err = gs.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logging.Error("Server error", logging.Err(err))
		if gs.beforeStop != nil {
			gs.beforeStop()
		}
		return err
	case <-ctx.Done():
		return gs.Shutdown()
	}
}

// Shutdown gracefully shuts down the server
func (gs *GracefulServer) Shutdown() error {
	logging.Info("Shutting down...")

	if gs.beforeStop != nil {
		gs.beforeStop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	if err := gs.server.Shutdown(ctx); err != nil {
		return err
	}

	if gs.shutdownHook != nil {
		gs.shutdownHook()
	}

	logging.Info("Server stopped")
	return nil
}

// RunWithGracefulShutdown starts an HTTP server and handles shutdown signals.
// beforeStop is called before shutdown begins (can be nil).
func RunWithGracefulShutdown(server *http.Server, beforeStop func()) error {
	gs := NewGracefulServer(server, &GracefulServerOptions{
		BeforeStop: beforeStop,
	})
	return gs.ListenAndServe()
}
