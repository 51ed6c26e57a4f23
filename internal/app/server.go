package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samvad-hq/quota-watch/internal/api"
	"github.com/samvad-hq/quota-watch/internal/commands"
	"github.com/samvad-hq/quota-watch/internal/logger"
	"github.com/samvad-hq/quota-watch/pkg/gateway"
	"github.com/samvad-hq/quota-watch/pkg/sites"
)

const shutdownTimeout = 10 * time.Second

// Server runs the HTTP API until its context is cancelled.
type Server struct {
	srv *http.Server
	log logger.Logger
}

// NewServer wires the command dispatcher and snapshot endpoints onto addr.
func NewServer(addr string, f gateway.Fetcher, reg *sites.Registry, snapshots api.SnapshotReader, log logger.Logger) (*Server, error) {
	if f == nil {
		return nil, fmt.Errorf("gateway fetcher must not be nil")
	}
	log = logger.Ensure(log)
	handler := api.NewServer(commands.NewDispatcher(f), reg, snapshots, log).Routes()
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http api listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http api shutdown: %w", err)
	}
	s.log.InfoObj("http api stopped", "addr", s.srv.Addr)
	return nil
}
