package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Pipeline metrics
	DestinationsChecked prometheus.Counter
	DestinationsFailed  prometheus.Counter
	AlertsTriggered     prometheus.Counter
	FetchErrors         *prometheus.CounterVec
	RunDuration         prometheus.Histogram

	// Email queue metrics
	EmailsDispatched prometheus.Counter
	EmailsFailed     prometheus.Counter
	DispatchLatency  prometheus.Histogram
	QueueDepth       prometheus.Gauge

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// New creates and registers all application metrics
func New(namespace string) *Metrics {
	return &Metrics{
		DestinationsChecked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "destinations_checked_total",
			Help:      "Total number of destinations checked by the price pipeline",
		}),
		DestinationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "destinations_failed_total",
			Help:      "Total number of destination checks that ended in error",
		}),
		AlertsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_triggered_total",
			Help:      "Total number of price alerts triggered",
		}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fare_fetch_errors_total",
			Help:      "Total number of fare search failures by kind",
		}, []string{"kind"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of full pipeline runs",
			Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		EmailsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_dispatched_total",
			Help:      "Total number of queued emails successfully sent",
		}),
		EmailsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_failed_total",
			Help:      "Total number of queued emails that failed to send",
		}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "email_dispatch_duration_seconds",
			Help:      "Time spent dispatching a batch of queued emails",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "email_queue_depth",
			Help:      "Current number of pending messages in the email queue",
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
