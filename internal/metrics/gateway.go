package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quota_watch"

// Gateway fetch and per-site quota metrics.
var (
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Total number of gateway fetches",
		},
		[]string{"operation", "outcome"}, // outcome: ok / validation / transport / http_status / body_read
	)

	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Gateway fetch duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	SiteBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "site_balance_quota",
			Help:      "Remaining quota reported by the site",
		},
		[]string{"site_id", "site_name"},
	)

	SiteUsedToday = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "site_used_today_quota",
			Help:      "Quota consumed since local midnight",
		},
		[]string{"site_id", "site_name"},
	)

	SiteRefreshErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "site_refresh_errors_total",
			Help:      "Total failed site refreshes",
		},
		[]string{"site_id"},
	)
)

var registerOnce sync.Once

// Register registers gateway and site metrics with the default registry.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(GatewayRequestsTotal)
		prometheus.MustRegister(GatewayRequestDuration)
		prometheus.MustRegister(SiteBalance)
		prometheus.MustRegister(SiteUsedToday)
		prometheus.MustRegister(SiteRefreshErrorsTotal)
	})
}

// Recorder is the metrics surface used by the monitor.
type Recorder interface {
	ObserveFetch(operation, outcome string, elapsed time.Duration)
	ObserveSite(siteID, siteName string, balance, usedToday int64, failed bool)
}

// Prometheus records into the package-level collectors.
type Prometheus struct{}

// ObserveFetch counts a gateway call and its latency.
func (Prometheus) ObserveFetch(operation, outcome string, elapsed time.Duration) {
	GatewayRequestsTotal.WithLabelValues(operation, outcome).Inc()
	GatewayRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveSite updates the per-site gauges.
func (Prometheus) ObserveSite(siteID, siteName string, balance, usedToday int64, failed bool) {
	SiteBalance.WithLabelValues(siteID, siteName).Set(float64(balance))
	SiteUsedToday.WithLabelValues(siteID, siteName).Set(float64(usedToday))
	if failed {
		SiteRefreshErrorsTotal.WithLabelValues(siteID).Inc()
	}
}

// Nop discards observations.
type Nop struct{}

func (Nop) ObserveFetch(string, string, time.Duration)     {}
func (Nop) ObserveSite(string, string, int64, int64, bool) {}
