package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/quota-watch/internal/config"
	"github.com/samvad-hq/quota-watch/internal/logger"
)

// Run starts the watcher and, when serve is true, the HTTP API alongside it.
// Both stop when ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, log logger.Logger, serve bool) error {
	watcher, err := NewWatcher(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Ensure(log).ErrorObj("watcher close failed", "error", err.Error())
		}
	}()

	var srv *Server
	if serve {
		if srv, err = NewServer(cfg.HTTPAddr, watcher.Client(), watcher.Sites(), watcher.Store(), log); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watcher.Run(gctx) })
	if srv != nil {
		g.Go(func() error { return srv.Run(gctx) })
	}
	return g.Wait()
}
