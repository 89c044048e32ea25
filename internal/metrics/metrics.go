package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Not labelled by event type: senders choose it freely.
	WebhooksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookscope_webhooks_received_total",
		Help: "Total number of webhooks persisted.",
	})

	WebhooksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookscope_webhooks_failed_total",
		Help: "Total number of webhooks that could not be ingested, labelled by stage.",
	}, []string{"stage"})

	WebhooksRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookscope_webhooks_rejected_total",
		Help: "Total number of webhooks rejected because the ingest queue was full.",
	})

	SignatureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookscope_signature_failures_total",
		Help: "Total number of signature verification failures, labelled by reason.",
	}, []string{"reason"})

	BroadcastDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookscope_broadcast_deliveries_total",
		Help: "Total number of messages handed to real-time observers.",
	})

	BroadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookscope_broadcast_failures_total",
		Help: "Total number of per-observer delivery failures.",
	})

	BroadcastSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookscope_broadcast_skipped_total",
		Help: "Total number of deliveries skipped because the observer was not open.",
	})

	ObserversConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hookscope_observers_connected",
		Help: "Number of currently connected real-time observers.",
	})

	WebhooksPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookscope_webhooks_purged_total",
		Help: "Total number of webhooks removed by the retention sweeper.",
	})

	RateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookscope_rate_limit_hits_total",
		Help: "Total number of requests refused by the rate limiter.",
	})

	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hookscope_ingest_duration_ms",
		Help:    "Ingestion latency from receipt to acknowledgement in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hookscope_queue_utilization_ratio",
		Help: "Current ingest queue utilization (0–1).",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookscope_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hookscope_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)
