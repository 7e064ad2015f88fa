// Package metrics holds the Prometheus collectors shared by the servers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts API requests by route template, method and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groupboard",
		Name:      "http_requests_total",
		Help:      "HTTP requests handled by the API server.",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes request latency by route template and method.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "groupboard",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// SideEffectFailures counts best-effort steps that failed after a commit.
	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groupboard",
		Name:      "side_effect_failures_total",
		Help:      "Post-commit steps that failed and were skipped.",
	}, []string{"workflow", "step"})

	// StoreFailures counts unexpected store errors surfaced as generic failures.
	StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groupboard",
		Name:      "store_failures_total",
		Help:      "Unclassified store failures by operation.",
	}, []string{"operation"})

	// WebSocketClients is the number of connected notify clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "groupboard",
		Name:      "websocket_clients",
		Help:      "Connected websocket clients.",
	})

	// EventsDelivered counts events pushed to websocket clients by type.
	EventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groupboard",
		Name:      "events_delivered_total",
		Help:      "Domain events pushed to connected clients.",
	}, []string{"type"})
)
