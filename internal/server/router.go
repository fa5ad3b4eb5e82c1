package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/hostrouter"

	"github.com/baely/bezos/internal/common/errors"
)

// Server is an HTTP server routing requests by Host header
type Server struct {
	*http.Server

	hostRouter      hostrouter.Routes
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// Config contains configuration for the Server
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// New creates a Server listening on :8080
func New() *Server {
	return NewWithConfig(&Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		Logger:          slog.Default(),
	})
}

// NewWithConfig creates a Server with custom configuration
func NewWithConfig(cfg *Config) *Server {
	hr := hostrouter.New()

	s := &Server{
		Server: &http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		hostRouter:      hr,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Mount("/", hr)
	s.Server.Handler = r

	return s
}

// RegisterDomain routes requests for domain to router. "*" matches any host.
func (s *Server) RegisterDomain(domain string, router chi.Router) {
	s.hostRouter.Map(domain, router)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
// Request contexts derive from ctx so long-lived streams end with it.
func (s *Server) Run(ctx context.Context) error {
	s.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", "addr", s.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	return nil
}
