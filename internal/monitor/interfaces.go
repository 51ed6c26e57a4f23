package monitor

import (
	"context"

	"github.com/samvad-hq/quota-watch/internal/domain"
	"github.com/samvad-hq/quota-watch/pkg/publishers"
)

// SnapshotStore keeps the latest snapshot per site.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap domain.Snapshot) error
}

// EventPublisher publishes snapshots downstream and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
