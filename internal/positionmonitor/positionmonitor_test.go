package positionmonitor

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

type fakePrices struct{ price int64 }

func (f fakePrices) LastPrice(symbol string) (int64, bool) { return f.price, true }

func TestMonitorTracksOpenedAndClosed(t *testing.T) {
	bus := eventbus.New(eventbus.DefaultConfig(), zerolog.Nop())
	m := New(DefaultConfig(), bus, fakePrices{price: 50000 * orders.Scale}, zerolog.Nop())
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	bus.Publish(events.Event{Kind: events.KindPositionOpened, Timestamp: time.Now().UnixNano(),
		Payload: events.PositionOpenedPayload{ClientOrderID: "c1", Symbol: "BTCUSDT", Side: orders.SideBuy, Quantity: 1, EntryPrice: 50000 * orders.Scale}})

	require.Eventually(t, func() bool { return m.OpenCount() == 1 }, time.Second, time.Millisecond)

	bus.Publish(events.Event{Kind: events.KindPositionClosed, Timestamp: time.Now().UnixNano(),
		Payload: events.PositionClosedPayload{ClientOrderID: "c1"}})

	require.Eventually(t, func() bool { return m.OpenCount() == 0 }, time.Second, time.Millisecond)
}

func TestMonitorFiresMaxHoldTimeExceeded(t *testing.T) {
	bus := eventbus.New(eventbus.DefaultConfig(), zerolog.Nop())
	var got events.Event
	done := make(chan struct{}, 1)
	bus.Subscribe(events.KindMaxHoldTimeExceeded, "test", func(ctx context.Context, ev events.Event) error {
		got = ev
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})

	cfg := Config{MaxHoldTime: time.Millisecond, PollInterval: time.Millisecond}
	m := New(cfg, bus, fakePrices{price: 50000 * orders.Scale}, zerolog.Nop())
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	bus.Publish(events.Event{Kind: events.KindPositionOpened, Timestamp: time.Now().Add(-time.Hour).UnixNano(),
		Payload: events.PositionOpenedPayload{ClientOrderID: "c2", Symbol: "ETHUSDT", Side: orders.SideBuy, Quantity: 1, EntryPrice: 3000 * orders.Scale}})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected MaxHoldTimeExceeded event")
	}
	require.Equal(t, "c2", got.Payload.(events.MaxHoldTimeExceededPayload).ClientOrderID)
}
