package decision

import (
	"math"

	"github.com/rishav/cryptoengine/internal/snapshot"
)

// MarketProfileFilter scores proximity to the point of control: price
// sitting close to POC gets a higher score (more confluence with volume-
// weighted fair value). Weight 1.5, matching the analytics engine's
// market-profile filter weighting.
type MarketProfileFilter struct {
	weight float64
}

func NewMarketProfileFilter() *MarketProfileFilter {
	return &MarketProfileFilter{weight: 1.5}
}

func (f *MarketProfileFilter) Name() string    { return "market_profile" }
func (f *MarketProfileFilter) Weight() float64 { return f.weight }

func (f *MarketProfileFilter) Evaluate(snap snapshot.Snapshot) float64 {
	poc, ok := snap.Feature(snapshot.FeaturePointOfControl)
	if !ok || snap.Price == 0 {
		return 0
	}
	distPct := math.Abs(float64(snap.Price-int64(poc))) / float64(snap.Price) * 100
	// Full weight at the POC itself, linearly decaying to 0 by 2% away.
	score := f.weight * (1 - distPct/2)
	if score < 0 {
		return 0
	}
	if score > f.weight {
		return f.weight
	}
	return score
}

// DemandZoneFilter scores proximity to the nearest demand zone: a price
// sitting just above a demand zone scores highly (confluence for a long
// entry near support). Weight 2.0, matching the analytics engine's
// supply/demand filter weighting.
type DemandZoneFilter struct {
	weight float64
}

func NewDemandZoneFilter() *DemandZoneFilter {
	return &DemandZoneFilter{weight: 2.0}
}

func (f *DemandZoneFilter) Name() string    { return "demand_zone" }
func (f *DemandZoneFilter) Weight() float64 { return f.weight }

func (f *DemandZoneFilter) Evaluate(snap snapshot.Snapshot) float64 {
	distPct, ok := snap.Feature(snapshot.FeatureNearestDemandDistance)
	if !ok {
		return 0
	}
	if distPct < 0 {
		// Price is below the zone; no demand-side confluence.
		return 0
	}
	// Full weight at the zone boundary, decaying to 0 by 3% away from it.
	score := f.weight * (1 - distPct/3)
	if score < 0 {
		return 0
	}
	if score > f.weight {
		return f.weight
	}
	return score
}
