// Package server owns the HTTP router and listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/coursegate/internal/pkg/config"
)

const serviceName = "coursegate"

// Server wraps the chi router. Construction never opens a socket; Listen
// does, so startup can abort before a port is bound.
type Server struct {
	Router *chi.Mux
	addr   string
	logger *slog.Logger

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
}

func New(cfg *config.Config, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName)
	})

	return &Server{
		Router: r,
		addr:   cfg.Addr(),
		logger: logger,
	}
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("server already listening on %s", s.listener.Addr())
	}
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = l
	s.httpSrv = &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Serve accepts connections until Shutdown. It returns nil after a graceful
// shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	srv, l := s.httpSrv, s.listener
	s.mu.Unlock()

	if srv == nil {
		return errors.New("server is not listening")
	}

	s.logger.Info("starting server", slog.String("addr", l.Addr().String()))
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down server")
	return srv.Shutdown(ctx)
}
