package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/quota-watch/internal/domain"
	"github.com/samvad-hq/quota-watch/internal/logger"
	"github.com/samvad-hq/quota-watch/internal/metrics"
	"github.com/samvad-hq/quota-watch/pkg/gateway"
	"github.com/samvad-hq/quota-watch/pkg/publishers"
	"github.com/samvad-hq/quota-watch/pkg/sites"
)

const (
	opFetchQuota     = "fetch_quota"
	opFetchUsageStat = "fetch_usage_stat"
)

// Service refreshes quota snapshots for monitored sites.
type Service struct {
	fetcher   gateway.Fetcher
	store     SnapshotStore
	publisher EventPublisher
	metrics   metrics.Recorder
	log       logger.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists every snapshot.
func WithStore(store SnapshotStore) Option {
	return func(s *Service) { s.store = store }
}

// WithPublisher publishes every snapshot.
func WithPublisher(pub EventPublisher) Option {
	return func(s *Service) { s.publisher = pub }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) { s.log = logger.Ensure(log) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires a monitor around a gateway fetcher.
func NewService(fetcher gateway.Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		metrics: metrics.Nop{},
		log:     logger.NopLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TodayWindow spans local midnight of now's day up to now, in Unix seconds.
func TodayWindow(now time.Time) gateway.TimeRange {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return gateway.TimeRange{Start: start.Unix(), End: now.Unix()}
}

// Run refreshes every site once, sequentially. A failing site does not stop
// the others; all failures are joined into the returned error.
func (s *Service) Run(ctx context.Context, list []sites.Site) error {
	if s == nil || s.fetcher == nil {
		return fmt.Errorf("monitor service is not initialized")
	}
	if len(list) == 0 {
		return fmt.Errorf("no sites configured for monitoring")
	}

	var errs []error
	for _, site := range list {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Refresh(ctx, site); err != nil {
			errs = append(errs, fmt.Errorf("site %s: %w", site.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Refresh queries one site and records the resulting snapshot. The snapshot is
// returned even when a query failed; its Error field then carries the reason
// and both quota figures are zero.
func (s *Service) Refresh(ctx context.Context, site sites.Site) (domain.Snapshot, error) {
	start := s.now()
	snap := domain.Snapshot{
		SiteID:   site.ID,
		SiteName: site.Name,
	}

	balance, usedToday, window, err := s.query(ctx, site.Auth(), start)
	snap.WindowStart, snap.WindowEnd = window.Start, window.End
	if err != nil {
		snap.Error = describeFailure(err)
		s.log.ErrorObj("site refresh failed", "site_error", map[string]any{
			"site_id": site.ID,
			"error":   snap.Error,
		})
	} else {
		snap.Balance, snap.UsedToday = balance, usedToday
	}
	snap.FetchedAt = s.now().UTC()
	snap.ElapsedMillis = snap.FetchedAt.Sub(start).Milliseconds()

	s.metrics.ObserveSite(snap.SiteID, snap.SiteName, snap.Balance, snap.UsedToday, err != nil)
	recordErr := s.record(ctx, snap)

	if err == nil {
		s.log.InfoObj("site refresh completed", "site_snapshot", map[string]any{
			"site_id":    snap.SiteID,
			"balance":    snap.Balance,
			"used_today": snap.UsedToday,
			"elapsed_ms": snap.ElapsedMillis,
		})
	}
	return snap, errors.Join(err, recordErr)
}

// query runs the quota lookup, then the usage stat for today's window.
func (s *Service) query(ctx context.Context, auth gateway.AuthContext, now time.Time) (int64, int64, gateway.TimeRange, error) {
	body, err := s.timed(opFetchQuota, func() (string, error) { return s.fetcher.FetchQuota(ctx, auth) })
	if err != nil {
		return 0, 0, gateway.TimeRange{}, err
	}
	balance, err := decodeQuota(body, balanceFailed)
	if err != nil {
		return 0, 0, gateway.TimeRange{}, err
	}

	window := TodayWindow(now)
	body, err = s.timed(opFetchUsageStat, func() (string, error) { return s.fetcher.FetchUsageStat(ctx, auth, window) })
	if err != nil {
		return 0, 0, window, err
	}
	usedToday, err := decodeQuota(body, usageFailed)
	if err != nil {
		return 0, 0, window, err
	}
	return balance, usedToday, window, nil
}

func (s *Service) timed(op string, fn func() (string, error)) (string, error) {
	start := time.Now()
	body, err := fn()
	outcome := "ok"
	if err != nil {
		outcome = gateway.KindOf(err).String()
	}
	s.metrics.ObserveFetch(op, outcome, time.Since(start))
	return body, err
}

func (s *Service) record(ctx context.Context, snap domain.Snapshot) error {
	var errs []error
	if s.store != nil {
		if err := s.store.SaveSnapshot(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("save snapshot: %w", err))
		}
	}
	if s.publisher != nil {
		delivered, err := s.publisher.Publish(ctx, publishers.NewEvent(snap))
		if err != nil {
			errs = append(errs, fmt.Errorf("publish snapshot: %w", err))
		}
		s.log.DebugObj("snapshot published", "publish_result", map[string]any{
			"site_id":   snap.SiteID,
			"delivered": delivered,
		})
	}
	return errors.Join(errs...)
}
