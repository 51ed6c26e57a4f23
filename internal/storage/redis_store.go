package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"
	"github.com/samvad-hq/quota-watch/internal/domain"
)

const redisKeyPrefix = "quota-watch:snapshot:"

// kv is the subset of Redis commands the snapshot store issues.
type kv interface {
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Close()
}

// redisStore implements a Store on Redis; expiry is delegated to SET EX.
type redisStore struct {
	kv          kv
	snapshotTTL time.Duration
}

func openRedis(addr string, opts Options) (Store, error) {
	addrs := strings.Split(addr, ",")
	for i := range addrs {
		addrs[i] = strings.TrimSpace(addrs[i])
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  addrs,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &redisStore{kv: &rueidisKV{client: client}, snapshotTTL: opts.SnapshotTTL}, nil
}

func (r *redisStore) Close() error {
	if r == nil || r.kv == nil {
		return nil
	}
	r.kv.Close()
	return nil
}

func (r *redisStore) SaveSnapshot(ctx context.Context, snap domain.Snapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := r.kv.SetEx(ctx, redisKeyPrefix+snap.SiteID, payload, r.snapshotTTL); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

func (r *redisStore) LatestSnapshot(ctx context.Context, siteID string) (domain.Snapshot, bool, error) {
	data, ok, err := r.kv.Get(ctx, redisKeyPrefix+siteID)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("redis get snapshot: %w", err)
	}
	if !ok {
		return domain.Snapshot{}, false, nil
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, true, nil
}

// rueidisKV adapts rueidis.Client to kv.
type rueidisKV struct {
	client rueidis.Client
}

func (k *rueidisKV) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := k.client.B().Set().Key(key).Value(string(value)).Ex(ttl).Build()
	return k.client.Do(ctx, cmd).Error()
}

func (k *rueidisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := k.client.B().Get().Key(key).Build()
	data, err := k.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (k *rueidisKV) Close() { k.client.Close() }
