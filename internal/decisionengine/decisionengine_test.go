package decisionengine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rishav/cryptoengine/internal/decision"
	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/orders"
	"github.com/rishav/cryptoengine/internal/snapshot"
)

type alwaysBuyAnalyzer struct{}

func (alwaysBuyAnalyzer) Name() string { return "always_buy" }
func (alwaysBuyAnalyzer) Analyze(snap snapshot.Snapshot) decision.PrimaryResult {
	return decision.PrimaryResult{Name: "always_buy", Passed: true, Direction: decision.DirectionBuy}
}

type fixedFilter struct{ score float64 }

func (f fixedFilter) Name() string                                { return "fixed" }
func (f fixedFilter) Weight() float64                              { return 10 }
func (f fixedFilter) Evaluate(snap snapshot.Snapshot) float64 { return f.score }

type fakeExec struct {
	calls []*decision.Signal
}

func (f *fakeExec) HandleSignal(sig *decision.Signal) error {
	f.calls = append(f.calls, sig)
	return nil
}

func TestEngineEvaluatesOnAnalyticsUpdated(t *testing.T) {
	bus := eventbus.New(eventbus.DefaultConfig(), zerolog.Nop())
	cache := snapshot.NewCache()
	cache.Put(snapshot.New("binance", "BTCUSDT", 50000*orders.Scale, time.Now().UnixNano(), nil))

	pipeline := decision.New(decision.Config{
		Analyzers: []decision.Analyzer{alwaysBuyAnalyzer{}},
		Filters:   []decision.Filter{fixedFilter{score: 8}},
		Exchange:  "binance",
	}, zerolog.Nop())

	exec := &fakeExec{}
	e := New(pipeline, cache, bus, exec, zerolog.Nop())
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop(context.Background())

	bus.Publish(events.Event{Kind: events.KindAnalyticsUpdated, Timestamp: time.Now().UnixNano(),
		Payload: events.AnalyticsUpdatedPayload{Exchange: "binance", Symbol: "BTCUSDT"}})

	require.Eventually(t, func() bool { return len(exec.calls) == 1 }, time.Second, time.Millisecond)
	require.Equal(t, "BTCUSDT", exec.calls[0].Symbol)
}
