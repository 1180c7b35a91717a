// Package analytics turns raw trade ticks into the derived features the
// decision pipeline reads from the snapshot cache: cumulative volume
// delta and order-flow imbalance (grounded in the order-flow analyzer's
// rolling buy/sell volume ratio), a volume-profile point of control
// (grounded in the market-profile analyzer's price-bucket histogram), and
// a short-vs-long CVD trend alignment signal.
package analytics

import (
	"context"
	"math"
	"time"

	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/orders"
	"github.com/rishav/cryptoengine/internal/snapshot"
)

const handlerName = "analytics_engine"

// Config bounds the rolling windows the engine keeps per symbol.
type Config struct {
	ImbalanceWindow time.Duration // default 1 minute
	TrendWindow     time.Duration // default 5 minutes, must be >= ImbalanceWindow
	ProfileWindow   time.Duration // default 30 minutes
	TickSizePercent float64       // volume-profile bucket width as % of price, default 0.1
}

// DefaultConfig matches the documented window defaults.
func DefaultConfig() Config {
	return Config{
		ImbalanceWindow: time.Minute,
		TrendWindow:     5 * time.Minute,
		ProfileWindow:   30 * time.Minute,
		TickSizePercent: 0.1,
	}
}

type tick struct {
	price, quantity int64
	side            int // 0 buy, 1 sell
	at              time.Time
}

type series struct {
	ticks []tick
}

func (s *series) add(t tick) {
	s.ticks = append(s.ticks, t)
}

// prune drops ticks older than cutoff, keeping the slice sorted by time.
func (s *series) prune(cutoff time.Time) {
	i := 0
	for i < len(s.ticks) && s.ticks[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.ticks = s.ticks[i:]
	}
}

// Engine subscribes to TradeTickReceived, maintains a rolling tick series
// per (exchange, symbol), and on every tick recomputes and republishes an
// AnalyticsUpdated snapshot.
type Engine struct {
	cfg   Config
	bus   *eventbus.Bus
	cache *snapshot.Cache

	series map[string]*series // keyed by exchange+"|"+symbol
}

// New builds an analytics Engine. cfg's zero value is replaced with
// DefaultConfig.
func New(cfg Config, bus *eventbus.Bus, cache *snapshot.Cache) *Engine {
	if cfg.ImbalanceWindow <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg, bus: bus, cache: cache, series: make(map[string]*series)}
}

// Start subscribes to TradeTickReceived.
func (e *Engine) Start(ctx context.Context) error {
	e.bus.Subscribe(events.KindTradeTickReceived, handlerName, e.onTick)
	return nil
}

// Stop unsubscribes.
func (e *Engine) Stop(ctx context.Context) error {
	e.bus.Unsubscribe(events.KindTradeTickReceived, handlerName)
	return nil
}

func seriesKey(exchange, symbol string) string { return exchange + "|" + symbol }

func (e *Engine) onTick(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.TradeTickReceivedPayload)
	if !ok {
		return nil
	}

	key := seriesKey(p.Exchange, p.Symbol)
	s, ok := e.series[key]
	if !ok {
		s = &series{}
		e.series[key] = s
	}

	at := time.Unix(0, ev.Timestamp)
	side := 0
	if p.Side != orders.SideBuy {
		side = 1
	}
	s.add(tick{price: p.Price, quantity: p.Quantity, side: side, at: at})

	profileWindow := e.cfg.ProfileWindow
	if profileWindow < e.cfg.TrendWindow {
		profileWindow = e.cfg.TrendWindow
	}
	s.prune(at.Add(-profileWindow))

	features := e.computeFeatures(s, at)
	snap := snapshot.New(p.Exchange, p.Symbol, p.Price, ev.Timestamp, features)
	e.cache.Put(snap)

	e.bus.Publish(events.Event{
		Kind:      events.KindAnalyticsUpdated,
		Timestamp: ev.Timestamp,
		Payload:   events.AnalyticsUpdatedPayload{Exchange: p.Exchange, Symbol: p.Symbol},
	})
	return nil
}

func (e *Engine) computeFeatures(s *series, now time.Time) map[string]float64 {
	features := make(map[string]float64, 6)

	imbalanceCutoff := now.Add(-e.cfg.ImbalanceWindow)
	buyVol, sellVol := volumeSince(s, imbalanceCutoff)
	cvd := buyVol - sellVol
	features[snapshot.FeatureCumulativeVolumeDelta] = cvd

	switch {
	case sellVol == 0 && buyVol > 0:
		features[snapshot.FeatureOrderFlowImbalance] = math.Inf(1)
	case buyVol == 0 && sellVol > 0:
		features[snapshot.FeatureOrderFlowImbalance] = 0
	case buyVol == 0 && sellVol == 0:
		features[snapshot.FeatureOrderFlowImbalance] = 1
	default:
		features[snapshot.FeatureOrderFlowImbalance] = buyVol / sellVol
	}

	trendCutoff := now.Add(-e.cfg.TrendWindow)
	trendBuy, trendSell := volumeSince(s, trendCutoff)
	features[snapshot.FeatureTrendAlignment] = trendBuy - trendSell

	if poc, ok := pointOfControl(s, e.cfg.TickSizePercent); ok {
		features[snapshot.FeaturePointOfControl] = poc
	}

	return features
}

// volumeSince returns (buyVolume, sellVolume) in orders.Scale units for
// ticks at or after cutoff.
func volumeSince(s *series, cutoff time.Time) (buy, sell float64) {
	for _, t := range s.ticks {
		if t.at.Before(cutoff) {
			continue
		}
		if t.side == 0 {
			buy += float64(t.quantity)
		} else {
			sell += float64(t.quantity)
		}
	}
	return buy, sell
}

// pointOfControl buckets trade volume into price bins of tickPct percent
// of the last trade price and returns the bin center with the most
// volume, mirroring a volume-profile histogram's POC.
func pointOfControl(s *series, tickPct float64) (float64, bool) {
	if len(s.ticks) == 0 {
		return 0, false
	}
	if tickPct <= 0 {
		tickPct = 0.1
	}
	last := s.ticks[len(s.ticks)-1].price
	bucketWidth := float64(last) * tickPct / 100
	if bucketWidth <= 0 {
		return float64(last), true
	}

	volumeByBucket := make(map[int64]float64)
	for _, t := range s.ticks {
		bucket := int64(math.Round(float64(t.price) / bucketWidth))
		volumeByBucket[bucket] += float64(t.quantity)
	}

	var bestBucket int64
	var bestVolume float64
	first := true
	for bucket, vol := range volumeByBucket {
		if first || vol > bestVolume {
			bestBucket, bestVolume, first = bucket, vol, false
		}
	}
	return float64(bestBucket) * bucketWidth, true
}
