package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ReportsSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecopoints",
		Subsystem: "reports",
		Name:      "submitted_total",
		Help:      "Total number of waste reports stored.",
	})

	// PointsAwardedTotal sums points granted, labeled by source (report, collection).
	PointsAwardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecopoints",
		Subsystem: "rewards",
		Name:      "points_awarded_total",
		Help:      "Total points granted, labeled by source.",
	}, []string{"source"})

	ClaimsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecopoints",
		Subsystem: "tasks",
		Name:      "claims_total",
		Help:      "Collection task claims, labeled by result.",
	}, []string{"result"})

	VerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecopoints",
		Subsystem: "tasks",
		Name:      "verifications_total",
		Help:      "Collection verification attempts, labeled by result.",
	}, []string{"result"})

	ClassifierDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecopoints",
		Subsystem: "classifier",
		Name:      "request_duration_seconds",
		Help:      "Time spent waiting for the image classifier.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"result"})

	RedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecopoints",
		Subsystem: "rewards",
		Name:      "redemptions_total",
		Help:      "Reward redemptions, labeled by result.",
	}, []string{"result"})

	RabbitMQConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecopoints",
		Subsystem: "events",
		Name:      "rabbitmq_connected",
		Help:      "Whether the event publisher currently holds an open RabbitMQ channel.",
	})

	PublishErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecopoints",
		Subsystem: "events",
		Name:      "publish_errors_total",
		Help:      "Total number of domain events that could not be published.",
	})

	WebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecopoints",
		Subsystem: "notifications",
		Name:      "websocket_clients",
		Help:      "Open notification WebSocket connections.",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecopoints",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecopoints",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency, labeled by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Register registers the service metrics with the default Prometheus
// registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ReportsSubmittedTotal,
			PointsAwardedTotal,
			ClaimsTotal,
			VerificationsTotal,
			ClassifierDurationSeconds,
			RedemptionsTotal,
			RabbitMQConnected,
			PublishErrorsTotal,
			WebSocketClients,
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
		)
	})
}
