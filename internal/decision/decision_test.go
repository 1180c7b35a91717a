package decision

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/cryptoengine/internal/orders"
	"github.com/rishav/cryptoengine/internal/snapshot"
)

type stubAnalyzer struct {
	name   string
	result PrimaryResult
}

func (s stubAnalyzer) Name() string                            { return s.name }
func (s stubAnalyzer) Analyze(snapshot.Snapshot) PrimaryResult { return s.result }

type stubFilter struct {
	name   string
	weight float64
	score  float64
}

func (s stubFilter) Name() string                        { return s.name }
func (s stubFilter) Weight() float64                      { return s.weight }
func (s stubFilter) Evaluate(snapshot.Snapshot) float64 { return s.score }

func TestEvaluateHappyPath(t *testing.T) {
	cfg := Config{
		Analyzers: []Analyzer{
			stubAnalyzer{name: "a1", result: PrimaryResult{Name: "a1", Passed: true, Direction: DirectionBuy}},
			stubAnalyzer{name: "a2", result: PrimaryResult{Name: "a2", Passed: true, Direction: DirectionBuy}},
		},
		Filters: []Filter{
			stubFilter{name: "f1", weight: 2.0, score: 2.0},
			stubFilter{name: "f2", weight: 2.0, score: 1.5},
		},
		MinConfluenceScore: 3.0,
	}
	p := New(cfg, zerolog.Nop())

	snap := snapshot.New("binance", "BTCUSDT", 50000*orders.Scale, 0, nil)
	sig := p.Evaluate(snap, 50000*orders.Scale, 123)

	require.NotNil(t, sig)
	assert.Equal(t, orders.SideBuy, sig.Side)
	assert.InDelta(t, 3.5, sig.ConfluenceScore, 0.001)
	assert.Equal(t, ConfidenceVeryHigh, sig.Confidence) // 3.5/4.0 = 0.875 >= 0.85
}

func TestEvaluatePrimaryGateShortCircuits(t *testing.T) {
	cfg := Config{
		Analyzers: []Analyzer{
			stubAnalyzer{name: "a1", result: PrimaryResult{Name: "a1", Passed: false}},
		},
		Filters: []Filter{stubFilter{name: "f1", weight: 5, score: 5}},
	}
	p := New(cfg, zerolog.Nop())
	snap := snapshot.New("binance", "BTCUSDT", 1, 0, nil)
	assert.Nil(t, p.Evaluate(snap, 1, 0))
}

func TestEvaluateDirectionDisagreementBlocksSignal(t *testing.T) {
	cfg := Config{
		Analyzers: []Analyzer{
			stubAnalyzer{name: "a1", result: PrimaryResult{Name: "a1", Passed: true, Direction: DirectionBuy}},
			stubAnalyzer{name: "a2", result: PrimaryResult{Name: "a2", Passed: true, Direction: DirectionSell}},
		},
		Filters: []Filter{stubFilter{name: "f1", weight: 5, score: 5}},
	}
	p := New(cfg, zerolog.Nop())
	snap := snapshot.New("binance", "BTCUSDT", 1, 0, nil)
	assert.Nil(t, p.Evaluate(snap, 1, 0))
}

func TestEvaluateBelowThresholdBlocksSignal(t *testing.T) {
	cfg := Config{
		Analyzers: []Analyzer{
			stubAnalyzer{name: "a1", result: PrimaryResult{Name: "a1", Passed: true, Direction: DirectionBuy}},
		},
		Filters:            []Filter{stubFilter{name: "f1", weight: 5, score: 1}},
		MinConfluenceScore: 3.0,
	}
	p := New(cfg, zerolog.Nop())
	snap := snapshot.New("binance", "BTCUSDT", 1, 0, nil)
	assert.Nil(t, p.Evaluate(snap, 1, 0))
}

func TestConfidenceClassification(t *testing.T) {
	cases := []struct {
		ratio float64
		want  Confidence
	}{
		{0.1, ConfidenceLow},
		{0.6, ConfidenceMedium},
		{0.8, ConfidenceHigh},
		{0.95, ConfidenceVeryHigh},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, classify(c.ratio))
	}
}

func TestPanickingFilterContributesZero(t *testing.T) {
	cfg := Config{
		Analyzers: []Analyzer{
			stubAnalyzer{name: "a1", result: PrimaryResult{Name: "a1", Passed: true, Direction: DirectionBuy}},
		},
		Filters: []Filter{
			panicFilter{},
			stubFilter{name: "f2", weight: 5, score: 4},
		},
		MinConfluenceScore: 3.0,
	}
	p := New(cfg, zerolog.Nop())
	snap := snapshot.New("binance", "BTCUSDT", 1, 0, nil)
	sig := p.Evaluate(snap, 1, 0)
	require.NotNil(t, sig)
	assert.InDelta(t, 4.0, sig.ConfluenceScore, 0.001)
}

type panicFilter struct{}

func (panicFilter) Name() string                      { return "panics" }
func (panicFilter) Weight() float64                    { return 5 }
func (panicFilter) Evaluate(snapshot.Snapshot) float64 { panic("boom") }
