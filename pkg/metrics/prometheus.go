package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	StatusTransitions   *prometheus.CounterVec
	PaymentsRecorded    prometheus.Counter
	PhotosSaved         *prometheus.CounterVec
	BroadcastsSent      *prometheus.CounterVec
	BroadcastsDropped   *prometheus.CounterVec
	CleanupDeleted      prometheus.Counter
	CleanupErrors       prometheus.Counter
	CleanupDuration     prometheus.Histogram
	TransactionDuration *prometheus.HistogramVec
}

// NewMetrics registers the metrics on reg. A nil reg uses the default
// prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_status_transitions_total",
			Help:      "The total number of committed reservation status changes",
		}, []string{"from", "to"}),
		PaymentsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_payments_total",
			Help:      "The total number of recorded payments",
		}),
		PhotosSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_photos_saved_total",
			Help:      "The total number of stored job photos",
		}, []string{"type"}),
		BroadcastsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_broadcasts_total",
			Help:      "The total number of realtime events delivered to subscribers",
		}, []string{"event"}),
		BroadcastsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_broadcast_errors_total",
			Help:      "The total number of realtime events that failed to encode or send",
		}, []string{"event"}),
		CleanupDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_photos_deleted_total",
			Help:      "The total number of orphan photos removed by the cleanup job",
		}),
		CleanupErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_photo_cleanup_errors_total",
			Help:      "The total number of failed cleanup runs",
		}),
		CleanupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "orphan_photo_cleanup_duration_seconds",
			Help:      "Time taken by a cleanup run",
			Buckets:   prometheus.DefBuckets,
		}),
		TransactionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_transaction_duration_seconds",
			Help:      "Time taken by reservation write transactions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
