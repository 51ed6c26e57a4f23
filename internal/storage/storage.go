package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/quota-watch/internal/domain"
)

// Package storage keeps the latest snapshot per site.

// Store persists snapshots keyed by site id.
type Store interface {
	Close() error
	SaveSnapshot(ctx context.Context, snap domain.Snapshot) error
	LatestSnapshot(ctx context.Context, siteID string) (domain.Snapshot, bool, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	SnapshotTTL     time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSnapshotTTL     = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend. location is the bbolt
// file path or the redis address, depending on typ.
func NewStore(typ, location string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(location) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(location, opts)
	case "redis":
		if strings.TrimSpace(location) == "" {
			return nil, fmt.Errorf("redis storage requires an address")
		}
		return openRedis(location, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaultSnapshotTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

func encodeSnapshot(snap domain.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

type noopStore struct{}

func (noopStore) Close() error                                        { return nil }
func (noopStore) SaveSnapshot(context.Context, domain.Snapshot) error { return nil }
func (noopStore) LatestSnapshot(context.Context, string) (domain.Snapshot, bool, error) {
	return domain.Snapshot{}, false, nil
}
