package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/quota-watch/internal/config"
	"github.com/samvad-hq/quota-watch/internal/logger"
	"github.com/samvad-hq/quota-watch/internal/metrics"
	"github.com/samvad-hq/quota-watch/internal/monitor"
	"github.com/samvad-hq/quota-watch/internal/storage"
	"github.com/samvad-hq/quota-watch/pkg/gateway"
	"github.com/samvad-hq/quota-watch/pkg/publishers"
	"github.com/samvad-hq/quota-watch/pkg/sites"
)

// Watcher is the quota polling runtime. It refreshes every configured site on
// a fixed interval, storing and publishing the resulting snapshots, and owns
// the store and publisher clients it opened.
type Watcher struct {
	cfg      *config.Config
	sites    *sites.Registry
	fanout   *publishers.Fanout
	monitor  *monitor.Service
	client   *gateway.Client
	interval time.Duration
	log      logger.Logger
	store    storage.Store
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	siteReg, err := LoadSites(cfg, log)
	if err != nil {
		return nil, err
	}
	siteIDs := make([]string, 0, siteReg.Len())
	for _, s := range siteReg.All() {
		siteIDs = append(siteIDs, s.ID)
	}
	log.InfoObj("sites registry loaded", "sites_meta", map[string]any{
		"count": len(siteIDs),
		"ids":   siteIDs,
	})

	client, err := NewGatewayClient(cfg, log)
	if err != nil {
		return nil, err
	}

	fanout, err := NewFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(cfg, log)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}

	metrics.Register()
	svc := monitor.NewService(client,
		monitor.WithStore(store),
		monitor.WithPublisher(fanout),
		monitor.WithMetrics(metrics.Prometheus{}),
		monitor.WithLogger(log),
	)

	return &Watcher{
		cfg:      cfg,
		sites:    siteReg,
		fanout:   fanout,
		monitor:  svc,
		client:   client,
		interval: cfg.PollInterval,
		log:      log,
		store:    store,
	}, nil
}

// Sites returns the monitored sites.
func (w *Watcher) Sites() *sites.Registry { return w.sites }

// Store returns the snapshot store, for read access by the HTTP API.
func (w *Watcher) Store() storage.Store { return w.store }

// Client returns the gateway client shared by the watcher.
func (w *Watcher) Client() *gateway.Client { return w.client }

// Run starts the poll loop until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.monitor == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	list := w.sites.All()
	if len(list) == 0 {
		w.log.WarnObj("no sites configured; watcher idle", "sites_file", w.cfg.SitesFile)
		<-ctx.Done()
		return nil
	}

	w.log.InfoObj("watcher loop starting", "watcher_state", map[string]any{
		"sites_count":      len(list),
		"publishers_count": w.fanout.Size(),
		"poll_interval":    w.interval.String(),
	})

	if err := w.RunOnce(ctx); err != nil {
		w.log.ErrorObj("initial refresh failed", "error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watcher loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.log.ErrorObj("scheduled refresh failed", "error", err.Error())
			}
		}
	}
}

// RunOnce refreshes every site a single time.
func (w *Watcher) RunOnce(ctx context.Context) error {
	list := w.sites.All()
	start := time.Now()
	w.log.InfoObj("refresh started", "refresh_meta", map[string]any{
		"sites_count": len(list),
		"started_at":  start.UTC(),
	})
	if err := w.monitor.Run(ctx, list); err != nil {
		return err
	}
	w.log.InfoObj("refresh completed", "refresh_meta", map[string]any{
		"sites_count": len(list),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	return nil
}

// Close releases the store and publisher clients.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	var errs []error
	if w.fanout != nil {
		if err := w.fanout.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	return errors.Join(errs...)
}
