package decision

import (
	"github.com/rishav/cryptoengine/internal/snapshot"
)

// OrderFlowAnalyzer is a primary gate built on cumulative volume delta and
// order-flow imbalance: it passes when the imbalance ratio clears
// ImbalanceThreshold in either direction, and reports that direction.
// Grounded in the CVD/imbalance detector's ratio thresholds (buy-pressure
// above, sell-pressure below the reciprocal).
type OrderFlowAnalyzer struct {
	ImbalanceThreshold float64 // default 2.5
}

// NewOrderFlowAnalyzer returns an analyzer using the documented default
// imbalance threshold.
func NewOrderFlowAnalyzer() *OrderFlowAnalyzer {
	return &OrderFlowAnalyzer{ImbalanceThreshold: 2.5}
}

func (a *OrderFlowAnalyzer) Name() string { return "order_flow" }

func (a *OrderFlowAnalyzer) Analyze(snap snapshot.Snapshot) PrimaryResult {
	imbalance, ok := snap.Feature(snapshot.FeatureOrderFlowImbalance)
	if !ok {
		return PrimaryResult{Name: a.Name(), Passed: false, Reason: "order_flow_imbalance not computed"}
	}

	threshold := a.ImbalanceThreshold
	if threshold <= 0 {
		threshold = 2.5
	}

	switch {
	case imbalance >= threshold:
		return PrimaryResult{Name: a.Name(), Passed: true, Direction: DirectionBuy, Reason: "buy imbalance"}
	case imbalance <= 1/threshold:
		return PrimaryResult{Name: a.Name(), Passed: true, Direction: DirectionSell, Reason: "sell imbalance"}
	default:
		return PrimaryResult{Name: a.Name(), Passed: false, Reason: "no imbalance"}
	}
}

// MicrostructureAnalyzer is a primary gate on short-term trend alignment:
// it passes whenever the trend_alignment feature agrees in sign with the
// order-flow direction classification implied by cumulative volume delta,
// and fails (no signal either way) when CVD is flat.
type MicrostructureAnalyzer struct{}

func NewMicrostructureAnalyzer() *MicrostructureAnalyzer { return &MicrostructureAnalyzer{} }

func (a *MicrostructureAnalyzer) Name() string { return "microstructure" }

func (a *MicrostructureAnalyzer) Analyze(snap snapshot.Snapshot) PrimaryResult {
	cvd, cvdOK := snap.Feature(snapshot.FeatureCumulativeVolumeDelta)
	trend, trendOK := snap.Feature(snapshot.FeatureTrendAlignment)
	if !cvdOK || !trendOK {
		return PrimaryResult{Name: a.Name(), Passed: false, Reason: "required features not computed"}
	}

	if cvd == 0 {
		return PrimaryResult{Name: a.Name(), Passed: false, Reason: "flat cumulative volume delta"}
	}

	cvdBullish := cvd > 0
	trendBullish := trend > 0

	if cvdBullish != trendBullish {
		return PrimaryResult{Name: a.Name(), Passed: false, Reason: "cvd/trend disagreement"}
	}

	dir := DirectionSell
	if cvdBullish {
		dir = DirectionBuy
	}
	return PrimaryResult{Name: a.Name(), Passed: true, Direction: dir, Reason: "cvd/trend aligned"}
}
