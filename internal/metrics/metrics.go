// Package metrics exposes the engine's Prometheus collectors: event bus
// throughput and latency, order manager state, and notification
// dispatch outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Event bus metrics.
	BusPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoengine_bus_published_total",
			Help: "Total number of events published by kind",
		},
		[]string{"kind"},
	)

	BusDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoengine_bus_delivered_total",
			Help: "Total number of events delivered to handlers by kind",
		},
		[]string{"kind"},
	)

	BusHandlerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoengine_bus_handler_errors_total",
			Help: "Total number of handler errors by kind",
		},
		[]string{"kind"},
	)

	BusHandlerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptoengine_bus_handler_latency_seconds",
			Help:    "Handler processing latency in seconds by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	BusQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cryptoengine_bus_queue_depth",
			Help: "Current mailbox depth by kind",
		},
		[]string{"kind"},
	)

	BusDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoengine_bus_dropped_total",
			Help: "Total number of events dropped due to mailbox overrun, by kind",
		},
		[]string{"kind"},
	)

	// Order manager metrics.
	OrdersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptoengine_orders_active",
			Help: "Current number of orders in a non-terminal state",
		},
	)

	OrdersHistoryTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptoengine_orders_history",
			Help: "Current number of orders retained in bounded history",
		},
	)

	OrderOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoengine_order_outcomes_total",
			Help: "Total number of execution pipeline outcomes by result",
		},
		[]string{"outcome"},
	)

	OrderPlacementRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptoengine_order_placement_retries_total",
			Help: "Total number of order placement retry attempts",
		},
	)

	// Notification metrics.
	NotificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoengine_notifications_sent_total",
			Help: "Total number of notifications sent by tier",
		},
		[]string{"tier"},
	)

	NotificationsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoengine_notifications_failed_total",
			Help: "Total number of notifications that failed delivery by tier",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		BusPublishedTotal, BusDeliveredTotal, BusHandlerErrorsTotal, BusHandlerLatency,
		BusQueueDepth, BusDroppedTotal,
		OrdersActive, OrdersHistoryTotal, OrderOutcomesTotal, OrderPlacementRetriesTotal,
		NotificationsSentTotal, NotificationsFailedTotal,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
