// Package positionmonitor tracks every position opened by the execution
// engine for as long as it stays open: hold time and trailing-stop
// distance. It stores each position's stop loss and take profit but does
// not check price against them or compute drawdown. It never places orders
// itself — it only raises bus events (ForceExitRequired,
// MaxHoldTimeExceeded, TrailingStopHit); within the engine, the
// notification router is the only subscriber to them.
package positionmonitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/lifecycle"
	"github.com/rishav/cryptoengine/internal/orders"
)

const handlerName = "position_monitor"

// Config bounds how long a position may stay open and how far price may
// trail before a stop fires.
type Config struct {
	MaxHoldTime            time.Duration
	TrailingStopDistancePct float64 // 0 disables trailing stops
	PollInterval           time.Duration
}

// DefaultConfig is a conservative default: 24h max hold, no trailing
// stop, checked every 5 seconds.
func DefaultConfig() Config {
	return Config{MaxHoldTime: 24 * time.Hour, PollInterval: 5 * time.Second}
}

// position is the monitor's own record of one open position.
type position struct {
	clientOrderID string
	symbol        string
	side          orders.Side
	quantity      int64
	entryPrice    int64
	stopLoss      int64
	takeProfit    int64
	openedAt      time.Time

	highWaterMark int64 // best price seen since open, for the trailing stop
}

// PriceSource supplies the last known price for a symbol; the monitor
// polls it rather than subscribing to every tick, since only open
// symbols need checking.
type PriceSource interface {
	LastPrice(symbol string) (int64, bool)
}

// Monitor is an always-on component: Start subscribes to PositionOpened/
// PositionClosed and launches the polling loop; Stop tears both down.
type Monitor struct {
	cfg    Config
	bus    *eventbus.Bus
	prices PriceSource
	log    zerolog.Logger

	lifecycle *lifecycle.AlwaysOn

	mu        sync.Mutex
	positions map[string]*position // clientOrderID -> position
}

// New builds a Monitor.
func New(cfg Config, bus *eventbus.Bus, prices PriceSource, log zerolog.Logger) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg = DefaultConfig()
	}
	m := &Monitor{cfg: cfg, bus: bus, prices: prices, log: log, positions: make(map[string]*position)}
	m.lifecycle = lifecycle.NewAlwaysOn("position_monitor", m.loop)
	return m
}

// Start subscribes to lifecycle events and begins the polling loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.bus.Subscribe(events.KindPositionOpened, handlerName, m.onPositionOpened)
	m.bus.Subscribe(events.KindPositionClosed, handlerName, m.onPositionClosed)
	return m.lifecycle.Start(ctx)
}

// Stop unsubscribes and stops the polling loop.
func (m *Monitor) Stop(ctx context.Context) error {
	if err := m.lifecycle.Stop(ctx); err != nil {
		return err
	}
	m.bus.Unsubscribe(events.KindPositionOpened, handlerName)
	m.bus.Unsubscribe(events.KindPositionClosed, handlerName)
	return nil
}

// Health reports the monitor's lifecycle health.
func (m *Monitor) Health() lifecycle.Health { return m.lifecycle.Health() }

// OpenCount returns the number of positions currently tracked.
func (m *Monitor) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

func (m *Monitor) onPositionOpened(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.PositionOpenedPayload)
	if !ok {
		return nil
	}
	m.mu.Lock()
	m.positions[p.ClientOrderID] = &position{
		clientOrderID: p.ClientOrderID, symbol: p.Symbol, side: p.Side, quantity: p.Quantity,
		entryPrice: p.EntryPrice, stopLoss: p.StopLoss, takeProfit: p.TakeProfit,
		openedAt: time.Unix(0, ev.Timestamp), highWaterMark: p.EntryPrice,
	}
	m.mu.Unlock()
	return nil
}

func (m *Monitor) onPositionClosed(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.PositionClosedPayload)
	if !ok {
		return nil
	}
	m.mu.Lock()
	delete(m.positions, p.ClientOrderID)
	m.mu.Unlock()
	return nil
}

func (m *Monitor) loop(ctx context.Context, _ *lifecycle.Base) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAll()
		}
	}
}

func (m *Monitor) checkAll() {
	m.mu.Lock()
	snapshot := make([]*position, 0, len(m.positions))
	for _, p := range m.positions {
		snapshot = append(snapshot, p)
	}
	m.mu.Unlock()

	now := time.Now()
	for _, p := range snapshot {
		m.checkHoldTime(p, now)
		m.checkTrailingStop(p)
	}
}

func (m *Monitor) checkHoldTime(p *position, now time.Time) {
	if m.cfg.MaxHoldTime <= 0 {
		return
	}
	held := now.Sub(p.openedAt)
	if held < m.cfg.MaxHoldTime {
		return
	}
	m.bus.Publish(events.Event{Kind: events.KindMaxHoldTimeExceeded, Timestamp: now.UnixNano(),
		Payload: events.MaxHoldTimeExceededPayload{ClientOrderID: p.clientOrderID, Symbol: p.symbol, HeldSeconds: int64(held.Seconds())}})
	m.bus.Publish(events.Event{Kind: events.KindForceExitRequired, Timestamp: now.UnixNano(),
		Payload: events.ForceExitRequiredPayload{ClientOrderID: p.clientOrderID, Symbol: p.symbol, Reason: "max hold time exceeded"}})
}

func (m *Monitor) checkTrailingStop(p *position) {
	if m.cfg.TrailingStopDistancePct <= 0 {
		return
	}
	price, ok := m.prices.LastPrice(p.symbol)
	if !ok {
		return
	}

	m.mu.Lock()
	if (p.side == orders.SideBuy && price > p.highWaterMark) || (p.side == orders.SideSell && (p.highWaterMark == 0 || price < p.highWaterMark)) {
		p.highWaterMark = price
	}
	hwm := p.highWaterMark
	m.mu.Unlock()

	stopPrice := trailingStopPrice(p.side, hwm, m.cfg.TrailingStopDistancePct)
	triggered := (p.side == orders.SideBuy && price <= stopPrice) || (p.side == orders.SideSell && price >= stopPrice)
	if !triggered {
		return
	}

	m.bus.Publish(events.Event{Kind: events.KindTrailingStopHit, Timestamp: time.Now().UnixNano(),
		Payload: events.TrailingStopHitPayload{ClientOrderID: p.clientOrderID, Symbol: p.symbol, StopPrice: stopPrice, TriggerPrice: price}})
	m.bus.Publish(events.Event{Kind: events.KindForceExitRequired, Timestamp: time.Now().UnixNano(),
		Payload: events.ForceExitRequiredPayload{ClientOrderID: p.clientOrderID, Symbol: p.symbol, Reason: "trailing stop hit"}})
}

// trailingStopPrice computes the stop price a distancePct trailing stop
// sits at given the high (or low, for shorts) water mark seen so far.
func trailingStopPrice(side orders.Side, highWaterMark int64, distancePct float64) int64 {
	offset := int64(float64(highWaterMark) * distancePct / 100)
	if side == orders.SideBuy {
		return highWaterMark - offset
	}
	return highWaterMark + offset
}
