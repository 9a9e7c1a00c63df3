package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Fan-out metrics
	NotificationsCreated *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
	RealtimeDeliveries   *prometheus.CounterVec
	PushDispatches       *prometheus.CounterVec
	PushRecipients       prometheus.Counter

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Search metrics
	SearchQueriesTotal *prometheus.CounterVec
	SearchErrorsTotal  *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),

			NotificationsCreated: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_created_total",
					Help: "Total number of notification records written",
				},
				[]string{"kind"},
			),
			NotificationFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notification_failures_total",
					Help: "Total number of swallowed notification side effect failures",
				},
				[]string{"stage"},
			),
			RealtimeDeliveries: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_deliveries_total",
					Help: "Total number of realtime frames handed to subscribers",
				},
				[]string{"namespace", "result"},
			),
			PushDispatches: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "push_dispatches_total",
					Help: "Total number of push gateway calls",
				},
				[]string{"result"},
			),
			PushRecipients: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "push_recipients_total",
					Help: "Total number of device registrations addressed by push",
				},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			SearchQueriesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_queries_total",
					Help: "Total number of search queries",
				},
				[]string{"type"},
			),
			SearchErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_errors_total",
					Help: "Total number of search errors",
				},
				[]string{"type"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
