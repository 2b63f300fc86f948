// Package metrics exposes Prometheus collectors for the booking and
// settlement paths on a dedicated registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "talent"

var registry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

var (
	gigClaims = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gigs",
		Name:      "claims_total",
		Help:      "Gig claim attempts by outcome.",
	}, []string{"outcome"})

	invoicesIssued = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "invoices_issued_total",
		Help:      "Invoices issued by mode.",
	}, []string{"mode"})

	settlements = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "settlements_total",
		Help:      "Settlement attempts by outcome.",
	}, []string{"outcome"})

	webhooks = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhooks",
		Name:      "received_total",
		Help:      "Provider webhooks by event type and HTTP status.",
	}, []string{"event_type", "status"})

	notifications = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "delivered_total",
		Help:      "Notification deliveries by sink and outcome.",
	}, []string{"sink", "outcome"})

	notificationQueue = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "queue_depth",
		Help:      "Notices waiting for a dispatcher worker.",
	})

	reaperRuns = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reaper",
		Name:      "items_total",
		Help:      "Records transitioned by the background reaper.",
	}, []string{"kind"})

	httpDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})
)

func init() { //nolint:gochecknoinits // runtime collectors on the custom registry
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Registry returns the registry all collectors are registered on.
func Registry() *prometheus.Registry { return registry }

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func GigClaim(outcome string)   { gigClaims.WithLabelValues(outcome).Inc() }
func InvoiceIssued(mode string) { invoicesIssued.WithLabelValues(mode).Inc() }
func Settlement(outcome string) { settlements.WithLabelValues(outcome).Inc() }
func Reaped(kind string, n int) { reaperRuns.WithLabelValues(kind).Add(float64(n)) }
func QueueDepth(n int)          { notificationQueue.Set(float64(n)) }
func NotificationDelivery(sink, outcome string) {
	notifications.WithLabelValues(sink, outcome).Inc()
}

func Webhook(eventType string, status int) {
	webhooks.WithLabelValues(eventType, http.StatusText(status)).Inc()
}

func HTTPRequest(method string, status int, elapsed time.Duration) {
	httpDuration.WithLabelValues(method, http.StatusText(status)).Observe(elapsed.Seconds())
}
