// Package snapshot implements the Analytics Snapshot contract: an open,
// per-(exchange, symbol) bag of derived values that the decision pipeline
// reads and the analytics engine writes. Consumers access features by
// declared name; absence means "not computed". The cache is atomically
// replaced per key so readers never observe a torn value.
package snapshot

import (
	"sync"
	"sync/atomic"
)

// Snapshot is an immutable, open-schema bag of derived analytics values
// for one symbol. Feature access returns (value, ok) so a consumer can
// tell "zero" from "not computed".
type Snapshot struct {
	Exchange  string
	Symbol    string
	Price     int64 // orders.Scale fixed-point, current reference price
	TimestampNs int64
	features  map[string]float64
}

// New creates a Snapshot with the given feature values. The map is not
// retained by reference; callers may safely mutate the argument after
// calling New.
func New(exchange, symbol string, price, timestampNs int64, features map[string]float64) Snapshot {
	cp := make(map[string]float64, len(features))
	for k, v := range features {
		cp[k] = v
	}
	return Snapshot{Exchange: exchange, Symbol: symbol, Price: price, TimestampNs: timestampNs, features: cp}
}

// Feature returns the named derived value and whether it was computed.
func (s Snapshot) Feature(name string) (float64, bool) {
	v, ok := s.features[name]
	return v, ok
}

// Named feature keys used by the two shipped analyzers/filters.
const (
	FeatureCumulativeVolumeDelta = "cumulative_volume_delta"
	FeatureOrderFlowImbalance    = "order_flow_imbalance"
	FeaturePointOfControl        = "point_of_control"
	FeatureNearestDemandDistance = "nearest_demand_zone_distance_pct"
	FeatureNearestSupplyDistance = "nearest_supply_zone_distance_pct"
	FeatureTrendAlignment        = "trend_alignment"
)

// key identifies one cached snapshot slot.
type key struct {
	Exchange string
	Symbol   string
}

// Cache holds the most recently published Snapshot per (exchange, symbol),
// replaced atomically so concurrent readers never see a partially written
// snapshot.
type Cache struct {
	mu    sync.RWMutex
	slots map[key]*atomic.Value
}

// NewCache creates an empty snapshot cache.
func NewCache() *Cache {
	return &Cache{slots: make(map[key]*atomic.Value)}
}

func (c *Cache) slotFor(k key) *atomic.Value {
	c.mu.RLock()
	v, ok := c.slots[k]
	c.mu.RUnlock()
	if ok {
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.slots[k]; ok {
		return v
	}
	v = &atomic.Value{}
	c.slots[k] = v
	return v
}

// Put atomically replaces the cached snapshot for (snap.Exchange, snap.Symbol).
func (c *Cache) Put(snap Snapshot) {
	slot := c.slotFor(key{Exchange: snap.Exchange, Symbol: snap.Symbol})
	slot.Store(snap)
}

// Get returns the cached snapshot for (exchange, symbol), if one has been
// published.
func (c *Cache) Get(exchange, symbol string) (Snapshot, bool) {
	c.mu.RLock()
	slot, ok := c.slots[key{Exchange: exchange, Symbol: symbol}]
	c.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	v := slot.Load()
	if v == nil {
		return Snapshot{}, false
	}
	return v.(Snapshot), true
}
