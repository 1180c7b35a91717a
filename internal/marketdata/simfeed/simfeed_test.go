package simfeed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/orders"
)

func TestGeneratorEmitsTicks(t *testing.T) {
	bus := eventbus.New(eventbus.DefaultConfig(), zerolog.Nop())

	received := make(chan events.TradeTickReceivedPayload, 8)
	bus.Subscribe(events.KindTradeTickReceived, "test", func(ctx context.Context, ev events.Event) error {
		received <- ev.Payload.(events.TradeTickReceivedPayload)
		return nil
	})

	g := New(Config{
		Exchange: "simulated", Symbol: "BTCUSDT", StartPrice: 50000 * orders.Scale,
		TickInterval: time.Millisecond,
	}, bus, 1)
	require.NoError(t, g.Start(context.Background()))
	defer g.Stop(context.Background())

	select {
	case tick := <-received:
		require.Equal(t, "BTCUSDT", tick.Symbol)
		require.Positive(t, tick.Price)
	case <-time.After(time.Second):
		t.Fatal("no tick received")
	}
}
