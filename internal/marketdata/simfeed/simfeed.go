// Package simfeed generates a synthetic trade tick stream for one or more
// symbols and publishes it onto the event bus, standing in for a real
// exchange's market data stream when none is configured. The periodic
// emit loop mirrors the unified market-data manager's polling shape,
// adapted to a single in-process generator instead of a multi-venue
// websocket fan-in.
package simfeed

import (
	"context"
	"math/rand"
	"time"

	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/lifecycle"
	"github.com/rishav/cryptoengine/internal/orders"
)

// Config describes one symbol's synthetic price process.
type Config struct {
	Exchange   string
	Symbol     string
	StartPrice int64 // orders.Scale fixed-point
	// TickInterval is the pause between generated trades. Default 100ms.
	TickInterval time.Duration
	// VolatilityBps is the standard deviation of each tick's price move,
	// in basis points of the current price. Default 5 (0.05%).
	VolatilityBps float64
	// MinQuantity/MaxQuantity bound each trade's random size, in
	// orders.Scale fixed-point units. Default 0.01-2.0.
	MinQuantity, MaxQuantity int64
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	if c.VolatilityBps <= 0 {
		c.VolatilityBps = 5
	}
	if c.MinQuantity <= 0 {
		c.MinQuantity = orders.Scale / 100
	}
	if c.MaxQuantity <= c.MinQuantity {
		c.MaxQuantity = 2 * orders.Scale
	}
}

// Generator is an always-on component that emits TradeTickReceived events
// for one symbol on a fixed interval, following a discrete random walk.
type Generator struct {
	cfg   Config
	bus   *eventbus.Bus
	price int64
	rng   *rand.Rand

	lifecycle *lifecycle.AlwaysOn
}

// New builds a Generator. cfg's zero-value fields are replaced with
// defaults; seed drives the random walk deterministically for tests.
func New(cfg Config, bus *eventbus.Bus, seed int64) *Generator {
	cfg.applyDefaults()
	g := &Generator{cfg: cfg, bus: bus, price: cfg.StartPrice, rng: rand.New(rand.NewSource(seed))}
	g.lifecycle = lifecycle.NewAlwaysOn("simfeed_"+cfg.Exchange+"_"+cfg.Symbol, g.loop)
	return g
}

// Start begins emitting ticks.
func (g *Generator) Start(ctx context.Context) error { return g.lifecycle.Start(ctx) }

// Stop halts emission.
func (g *Generator) Stop(ctx context.Context) error { return g.lifecycle.Stop(ctx) }

// Health reports the generator's lifecycle health.
func (g *Generator) Health() lifecycle.Health { return g.lifecycle.Health() }

func (g *Generator) loop(ctx context.Context, _ *lifecycle.Base) {
	ticker := time.NewTicker(g.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.emit()
		}
	}
}

func (g *Generator) emit() {
	moveBps := g.rng.NormFloat64() * g.cfg.VolatilityBps
	delta := int64(float64(g.price) * moveBps / 10000)
	g.price += delta
	if g.price < 1 {
		g.price = 1
	}

	side := orders.SideBuy
	if g.rng.Intn(2) == 1 {
		side = orders.SideSell
	}
	quantity := g.cfg.MinQuantity + g.rng.Int63n(g.cfg.MaxQuantity-g.cfg.MinQuantity+1)

	g.bus.Publish(events.Event{
		Kind:      events.KindTradeTickReceived,
		Timestamp: time.Now().UnixNano(),
		Payload: events.TradeTickReceivedPayload{
			Exchange: g.cfg.Exchange,
			Symbol:   g.cfg.Symbol,
			Price:    g.price,
			Quantity: quantity,
			Side:     side,
		},
	})
}
