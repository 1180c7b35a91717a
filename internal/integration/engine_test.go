// Package integration exercises the fully wired engine (internal/config.Build)
// end to end: a synthetic trade tick flows through analytics, the decision
// pipeline, and the execution pipeline into a placed order on the
// simulated exchange.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rishav/cryptoengine/internal/config"
	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/orders"
)

func TestEngineDrivesTickToOrder(t *testing.T) {
	doc := config.Default()
	doc.Decision.MinConfluenceScore = -1000 // admit every signal in this smoke test
	doc.Notification.Recipient = "ops@example.test"

	rt, err := config.Build(doc, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, rt.Start(ctx))
	defer rt.Stop(context.Background())

	placed := make(chan struct{}, 1)
	rt.Bus.Subscribe(events.KindOrderPlaced, "test", func(ctx context.Context, ev events.Event) error {
		select {
		case placed <- struct{}{}:
		default:
		}
		return nil
	})

	now := time.Now()
	for i := 0; i < 20; i++ {
		rt.Bus.Publish(events.Event{Kind: events.KindTradeTickReceived, Timestamp: now.UnixNano(),
			Payload: events.TradeTickReceivedPayload{
				Exchange: "simulated", Symbol: "BTCUSDT",
				Price: 50_000 * orders.Scale, Quantity: 10 * orders.Scale, Side: orders.SideBuy,
			}})
	}
	rt.Bus.Publish(events.Event{Kind: events.KindTradeTickReceived, Timestamp: now.UnixNano(),
		Payload: events.TradeTickReceivedPayload{
			Exchange: "simulated", Symbol: "BTCUSDT",
			Price: 50_000 * orders.Scale, Quantity: 1 * orders.Scale, Side: orders.SideSell,
		}})

	select {
	case <-placed:
	case <-time.After(2 * time.Second):
		t.Fatal("no order was placed from the synthetic tick sequence")
	}
}
