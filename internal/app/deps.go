package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/samvad-hq/quota-watch/internal/config"
	"github.com/samvad-hq/quota-watch/internal/logger"
	"github.com/samvad-hq/quota-watch/internal/storage"
	"github.com/samvad-hq/quota-watch/pkg/gateway"
	"github.com/samvad-hq/quota-watch/pkg/headerprofile"
	"github.com/samvad-hq/quota-watch/pkg/publishers"
	"github.com/samvad-hq/quota-watch/pkg/sites"
)

// NewGatewayClient resolves the configured browser profile and request timeout.
func NewGatewayClient(cfg *config.Config, log logger.Logger) (*gateway.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	profiles, err := headerprofile.LoadRegistry(cfg.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("load browser profiles: %w", err)
	}
	profile, err := profiles.Lookup(cfg.BrowserProfile)
	if err != nil {
		return nil, err
	}
	logger.Ensure(log).DebugObj("gateway client configured", "gateway_config", map[string]any{
		"profile":         profile.Name,
		"request_timeout": cfg.RequestTimeout.String(),
	})
	return gateway.New(
		gateway.WithProfile(profile),
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithLogger(log),
	), nil
}

// LoadSites reads the sites file. When the file does not exist, the single-site
// settings (site_url, site_cookie, site_user_id) are migrated into a
// one-entry registry.
func LoadSites(cfg *config.Config, log logger.Logger) (*sites.Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	if cfg.SitesFile != "" {
		reg, err := sites.LoadRegistry(cfg.SitesFile)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load sites registry: %w", err)
		}
		log.WarnObj("sites file not found; using single-site settings", "sites_file", cfg.SitesFile)
	}

	reg, err := sites.Single(cfg.SiteURL, cfg.SiteCookie, cfg.SiteUserID)
	if err != nil {
		return nil, fmt.Errorf("single-site settings: %w", err)
	}
	return reg, nil
}

// NewFanout builds the enabled publishers. No publishers file means no sinks.
func NewFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg == nil || cfg.PublishersFile == "" {
		return publishers.NewFanout(nil), nil
	}
	log = logger.Ensure(log)

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// NewStore opens the configured snapshot store.
func NewStore(cfg *config.Config, log logger.Logger) (storage.Store, error) {
	location := cfg.BBoltPath
	if strings.EqualFold(strings.TrimSpace(cfg.StorageType), "redis") {
		location = cfg.RedisAddr
	}
	store, err := storage.NewStore(cfg.StorageType, location, storage.Options{
		SnapshotTTL:     cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.Ensure(log).InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"location":                 location,
		"snapshot_ttl_seconds":     int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})
	return store, nil
}
