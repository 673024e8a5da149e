// Package httpapi serves the WinkLink JSON API over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/winklink/internal/logging"
	"github.com/dmitrijs2005/winklink/internal/server/models"
	"github.com/dmitrijs2005/winklink/internal/server/observability"
	"github.com/dmitrijs2005/winklink/internal/server/services"
)

// UserService is the business logic the API exposes.
type UserService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.Registration, error)
	LookupDevice(ctx context.Context, serialNumber string) (*models.Device, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

type Server struct {
	address         string
	users           UserService
	metrics         *observability.Metrics
	logger          logging.Logger
	allowedOrigins  []string
	shutdownTimeout time.Duration
}

func NewServer(address string, l logging.Logger, us UserService, m *observability.Metrics, allowedOrigins []string, shutdownTimeout time.Duration) *Server {
	return &Server{
		address:         address,
		users:           us,
		metrics:         m,
		logger:          l.With("module", "http_server"),
		allowedOrigins:  allowedOrigins,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}
