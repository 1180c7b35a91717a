package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []Message
}

func (s *recordingSender) Send(ctx context.Context, recipient string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func TestRouterSendsCriticalImmediately(t *testing.T) {
	bus := eventbus.New(eventbus.DefaultConfig(), zerolog.Nop())
	sender := &recordingSender{}
	cfg := DefaultConfig()
	r := New(cfg, bus, sender, "ops@example.com", zerolog.Nop())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop(context.Background())

	bus.Publish(events.Event{Kind: events.KindOrderFailed, Timestamp: time.Now().UnixNano(),
		Payload: events.OrderFailedPayload{ClientOrderID: "c1", Symbol: "BTCUSDT", FailedStage: "risk_sizing", Reason: "too big"}})

	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, time.Millisecond)
}

func TestRouterBatchesInfoUntilForceFlush(t *testing.T) {
	bus := eventbus.New(eventbus.DefaultConfig(), zerolog.Nop())
	sender := &recordingSender{}
	cfg := DefaultConfig()
	cfg.Tiers[events.SeverityInfo] = TierConfig{BatchInterval: time.Hour}
	r := New(cfg, bus, sender, "ops@example.com", zerolog.Nop())
	require.NoError(t, r.Start(context.Background()))

	bus.Publish(events.Event{Kind: events.KindPositionOpened, Timestamp: time.Now().UnixNano(),
		Payload: events.PositionOpenedPayload{Symbol: "BTCUSDT"}})

	require.Eventually(t, func() bool {
		r.batchMu.Lock()
		defer r.batchMu.Unlock()
		return len(r.batches[events.SeverityInfo]) == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, 0, sender.count())

	require.NoError(t, r.Stop(context.Background()))
	require.Equal(t, 1, sender.count())
}

func TestRouterRateLimitsPerKind(t *testing.T) {
	bus := eventbus.New(eventbus.DefaultConfig(), zerolog.Nop())
	sender := &recordingSender{}
	cfg := DefaultConfig()
	cfg.RatePerHour = 1
	r := New(cfg, bus, sender, "ops@example.com", zerolog.Nop())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop(context.Background())

	for i := 0; i < 5; i++ {
		bus.Publish(events.Event{Kind: events.KindSystemError, Timestamp: time.Now().UnixNano(),
			Payload: events.SystemErrorPayload{Component: "test", Reason: "boom"}})
	}

	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, sender.count(), 1)
}
