package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/ordermanager"
)

func TestCollectorCollectsBusStats(t *testing.T) {
	bus := eventbus.New(eventbus.DefaultConfig(), zerolog.Nop())
	om := ordermanager.New(ordermanager.DefaultMaxHistorySize, zerolog.Nop())

	bus.Subscribe(events.KindTradeTickReceived, "noop", func(ctx context.Context, ev events.Event) error { return nil })
	bus.Publish(events.Event{Kind: events.KindTradeTickReceived})

	c := NewCollector(bus, om, time.Millisecond)
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop(context.Background())

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(BusPublishedTotal.WithLabelValues(events.KindTradeTickReceived.String())) > 0
	}, time.Second, time.Millisecond)
}
