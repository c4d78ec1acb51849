// Package metrics registers the portal's prometheus collectors on the
// default registry, exposed by promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "club",
		Name:      "orders_placed_total",
		Help:      "Orders accepted by placement.",
	})

	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "club",
		Name:      "orders_rejected_total",
		Help:      "Placements refused, by error code.",
	}, []string{"reason"})

	GramsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "club",
		Name:      "order_grams_total",
		Help:      "Grams reserved by accepted orders.",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "club",
		Name:      "order_status_transitions_total",
		Help:      "Order status changes, by target status.",
	}, []string{"to"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "club",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "club",
		Name:      "events_consumed_total",
		Help:      "Kafka events handled by the notifier, by outcome.",
	}, []string{"outcome"})
)
