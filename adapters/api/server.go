package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
)

// ServiceName is the name the HTTP server registers under.
const ServiceName = "api"

const shutdownTimeout = 5 * time.Second

// Server runs the router until its context is cancelled. It implements
// services.ManagedService.
type Server struct {
	addr    string
	handler http.Handler
	logger  *internal.Logger

	mu       sync.Mutex
	listener net.Listener
}

func NewServer(addr string, handler http.Handler, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.GetLogger()
	}
	return &Server{addr: addr, handler: handler, logger: logger}
}

// Addr returns the bound address once the server is listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(internal.ComponentAPI, "HTTP API listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP API: %w", err)
	}
	s.logger.Info(internal.ComponentAPI, "HTTP API stopped")
	return nil
}
