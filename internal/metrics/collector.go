package metrics

import (
	"context"
	"time"

	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/lifecycle"
	"github.com/rishav/cryptoengine/internal/ordermanager"
)

// defaultCollectInterval matches the poll cadence of the rest of the
// engine's periodic components.
const defaultCollectInterval = 15 * time.Second

// Collector polls the bus and order manager on an interval and mirrors
// their internal statistics into the package's Prometheus gauges/
// counters (those components track cumulative counters internally;
// Collector only copies the deltas/snapshots out).
type Collector struct {
	bus      *eventbus.Bus
	orders   *ordermanager.Manager
	interval time.Duration

	lifecycle *lifecycle.AlwaysOn

	lastPublished map[events.Kind]uint64
	lastDelivered map[events.Kind]uint64
	lastErrors    map[events.Kind]uint64
	lastDropped   map[events.Kind]uint64
}

// NewCollector builds a Collector. interval of 0 uses defaultCollectInterval.
func NewCollector(bus *eventbus.Bus, orders *ordermanager.Manager, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = defaultCollectInterval
	}
	c := &Collector{
		bus: bus, orders: orders, interval: interval,
		lastPublished: make(map[events.Kind]uint64),
		lastDelivered: make(map[events.Kind]uint64),
		lastErrors:    make(map[events.Kind]uint64),
		lastDropped:   make(map[events.Kind]uint64),
	}
	c.lifecycle = lifecycle.NewAlwaysOn("metrics_collector", c.loop)
	return c
}

// Start begins polling on the configured interval.
func (c *Collector) Start(ctx context.Context) error { return c.lifecycle.Start(ctx) }

// Stop halts polling.
func (c *Collector) Stop(ctx context.Context) error { return c.lifecycle.Stop(ctx) }

func (c *Collector) loop(ctx context.Context, _ *lifecycle.Base) {
	c.collect()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) collect() {
	for _, kind := range events.AllKinds() {
		stats := c.bus.Stats(kind)
		name := kind.String()

		BusPublishedTotal.WithLabelValues(name).Add(float64(stats.Published - c.lastPublished[kind]))
		c.lastPublished[kind] = stats.Published

		BusDeliveredTotal.WithLabelValues(name).Add(float64(stats.Delivered - c.lastDelivered[kind]))
		c.lastDelivered[kind] = stats.Delivered

		BusHandlerErrorsTotal.WithLabelValues(name).Add(float64(stats.HandlerErrors - c.lastErrors[kind]))
		c.lastErrors[kind] = stats.HandlerErrors

		BusDroppedTotal.WithLabelValues(name).Add(float64(stats.DroppedOverrun - c.lastDropped[kind]))
		c.lastDropped[kind] = stats.DroppedOverrun

		BusQueueDepth.WithLabelValues(name).Set(float64(stats.QueueDepth))
		if stats.Delivered > 0 {
			BusHandlerLatency.WithLabelValues(name).Observe(float64(stats.AvgLatencyNs) / 1e9)
		}
	}

	if c.orders != nil {
		st := c.orders.Stats()
		OrdersActive.Set(float64(st.ActiveCount))
		OrdersHistoryTotal.Set(float64(st.HistoryCount))
	}
}
