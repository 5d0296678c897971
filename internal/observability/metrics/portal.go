package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PortalRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_requests_total",
			Help: "Total number of portal HTTP requests",
		},
		[]string{"method", "path"},
	)

	PortalRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_requests_in_flight",
			Help: "Number of portal HTTP requests currently being processed",
		},
	)

	PortalRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_request_duration_seconds",
			Help:    "Duration of portal HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	PortalFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_fallbacks_total",
			Help: "Total number of views served from cached or default data",
		},
		[]string{"resource", "source"},
	)

	NotificationsPresented = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notifications_presented_total",
			Help: "Total number of toasts produced from realtime events",
		},
		[]string{"kind"},
	)
)

var (
	SnapshotsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_snapshots_saved_total",
			Help: "Total number of upstream snapshots written to the fallback cache",
		},
		[]string{"resource"},
	)

	SnapshotsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_snapshots_pruned_total",
			Help: "Total number of stale snapshots removed by the cleanup loop",
		},
	)
)
