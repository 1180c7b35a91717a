package eventbus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/cryptoengine/internal/events"
)

func newTestBus() *Bus {
	return New(DefaultConfig(), zerolog.Nop())
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := newTestBus()
	received := make(chan events.Event, 1)

	b.Subscribe(events.KindTradeTickReceived, "sink", func(_ context.Context, ev events.Event) error {
		received <- ev
		return nil
	})

	b.Publish(events.Event{Kind: events.KindTradeTickReceived, SequenceNum: 1})

	select {
	case ev := <-received:
		assert.Equal(t, events.KindTradeTickReceived, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	b.Stop(time.Second)
}

func TestFIFOPerHandler(t *testing.T) {
	b := newTestBus()
	var seen []uint64
	done := make(chan struct{})

	b.Subscribe(events.KindTradeTickReceived, "fifo", func(_ context.Context, ev events.Event) error {
		seen = append(seen, ev.SequenceNum)
		if len(seen) == 5 {
			close(done)
		}
		return nil
	})

	for i := uint64(1); i <= 5; i++ {
		b.Publish(events.Event{Kind: events.KindTradeTickReceived, SequenceNum: i})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("did not receive all events")
	}

	require.Len(t, seen, 5)
	for i, s := range seen {
		assert.Equal(t, uint64(i+1), s)
	}
	b.Stop(time.Second)
}

func TestPublishAssignsSequenceNumbers(t *testing.T) {
	b := newTestBus()
	received := make(chan events.Event, 10)

	b.Subscribe(events.KindTradeTickReceived, "sink", func(_ context.Context, ev events.Event) error {
		received <- ev
		return nil
	})

	// Caller supplies no SequenceNum; Publish must assign one anyway.
	for i := 0; i < 5; i++ {
		b.Publish(events.Event{Kind: events.KindTradeTickReceived})
	}

	var seqs []uint64
	for i := 0; i < 5; i++ {
		select {
		case ev := <-received:
			seqs = append(seqs, ev.SequenceNum)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
	for i, s := range seqs {
		assert.Equal(t, uint64(i+1), s, "sequence numbers must be monotonically increasing from publish order")
	}
	b.Stop(time.Second)
}

func TestStatsTracksP99Latency(t *testing.T) {
	b := newTestBus()
	b.Subscribe(events.KindTradeTickReceived, "slow-sometimes", func(_ context.Context, ev events.Event) error {
		if ev.SequenceNum%50 == 0 {
			time.Sleep(20 * time.Millisecond)
		}
		return nil
	})

	for i := 0; i < 100; i++ {
		b.Publish(events.Event{Kind: events.KindTradeTickReceived})
	}

	require.Eventually(t, func() bool {
		return b.Stats(events.KindTradeTickReceived).Delivered == 100
	}, 2*time.Second, 10*time.Millisecond)

	stats := b.Stats(events.KindTradeTickReceived)
	assert.Greater(t, stats.P99LatencyNs, stats.AvgLatencyNs, "the slow outlier should pull p99 above the average")
	b.Stop(time.Second)
}

func TestHandlerErrorIsolated(t *testing.T) {
	b := newTestBus()
	var otherCalled int32

	b.Subscribe(events.KindOrderFailed, "broken", func(_ context.Context, _ events.Event) error {
		panic("boom")
	})
	b.Subscribe(events.KindOrderFailed, "healthy", func(_ context.Context, _ events.Event) error {
		atomic.AddInt32(&otherCalled, 1)
		return nil
	})

	b.Publish(events.Event{Kind: events.KindOrderFailed})

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&otherCalled) == 1
	}, time.Second, 10*time.Millisecond)

	stats := b.Stats(events.KindOrderFailed)
	assert.Equal(t, uint64(1), stats.HandlerErrors)
	b.Stop(time.Second)
}

func TestDuplicateSubscriptionIsNoOp(t *testing.T) {
	b := newTestBus()
	calls := int32(0)
	h := func(_ context.Context, _ events.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}

	b.Subscribe(events.KindSignalGenerated, "dup", h)
	b.Subscribe(events.KindSignalGenerated, "dup", h)

	b.Publish(events.Event{Kind: events.KindSignalGenerated})

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, 10*time.Millisecond)
	b.Stop(time.Second)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBus()
	calls := int32(0)
	h := func(_ context.Context, _ events.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	b.Subscribe(events.KindCandleCompleted, "temp", h)
	b.Unsubscribe(events.KindCandleCompleted, "temp")

	b.Publish(events.Event{Kind: events.KindCandleCompleted})
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestMailboxDropsOldestOnOverrun(t *testing.T) {
	box := newMailbox(4)
	for i := uint64(1); i <= 10; i++ {
		box.publish(events.Event{SequenceNum: i})
	}

	ev, ok := box.tryConsume()
	require.True(t, ok)
	assert.Greater(t, ev.SequenceNum, uint64(4), "oldest entries should have been dropped")
	assert.Equal(t, uint64(6), box.droppedCount())
}
