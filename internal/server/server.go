// Package server wraps http.Server with the admin API's timeouts and
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hilmishah-img/usms/internal/common/logging"
)

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 120 * time.Second
)

// Server represents an HTTP server
type Server struct {
	srv    *http.Server
	logger logging.Logger

	mu       sync.Mutex
	listener net.Listener
	errCh    chan error
}

// New creates a server for handler listening on addr (host:port)
func New(handler http.Handler, addr string, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		logger: logger.WithFields(logging.String("component", "server")),
		errCh:  make(chan error, 1),
	}
}

// Start binds the listener and serves in the background. Bind failures are
// returned; later serve failures are delivered on Errors.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Admin API listening", logging.String("addr", ln.Addr().String()))

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Admin API stopped unexpectedly", err)
			s.errCh <- err
		}
	}()
	return nil
}

// Errors reports a serve failure after Start returned
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
