package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/orders"
	"github.com/rishav/cryptoengine/internal/snapshot"
)

func TestEngineComputesImbalanceFromTicks(t *testing.T) {
	bus := eventbus.New(eventbus.DefaultConfig(), zerolog.Nop())
	cache := snapshot.NewCache()
	e := New(DefaultConfig(), bus, cache)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop(context.Background())

	updated := make(chan struct{}, 8)
	bus.Subscribe(events.KindAnalyticsUpdated, "test", func(ctx context.Context, ev events.Event) error {
		updated <- struct{}{}
		return nil
	})

	now := time.Now()
	for i := 0; i < 5; i++ {
		bus.Publish(events.Event{Kind: events.KindTradeTickReceived, Timestamp: now.UnixNano(),
			Payload: events.TradeTickReceivedPayload{Exchange: "binance", Symbol: "BTCUSDT",
				Price: 50000 * orders.Scale, Quantity: 10 * orders.Scale, Side: orders.SideBuy}})
	}
	bus.Publish(events.Event{Kind: events.KindTradeTickReceived, Timestamp: now.UnixNano(),
		Payload: events.TradeTickReceivedPayload{Exchange: "binance", Symbol: "BTCUSDT",
			Price: 50000 * orders.Scale, Quantity: 1 * orders.Scale, Side: orders.SideSell}})

	require.Eventually(t, func() bool {
		snap, ok := cache.Get("binance", "BTCUSDT")
		if !ok {
			return false
		}
		imbalance, ok := snap.Feature(snapshot.FeatureOrderFlowImbalance)
		return ok && imbalance > 2.5
	}, time.Second, time.Millisecond)
}
