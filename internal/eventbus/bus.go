package eventbus

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rishav/cryptoengine/internal/events"
)

// latencySampleCap bounds the reservoir of recent handler latencies kept
// per subscription for p99 estimation: a fixed ring buffer rather than an
// unbounded history.
const latencySampleCap = 512

// Handler processes one event. A handler that returns an error is logged
// and counted; the error never propagates to the publisher and never
// interrupts delivery to other handlers.
type Handler func(ctx context.Context, ev events.Event) error

// Config controls mailbox sizing.
type Config struct {
	// MailboxSize is the bounded queue depth per (kind, handler)
	// subscription, rounded up to the next power of two (the default
	// 10,000 gives 16,384 slots).
	MailboxSize int
}

// DefaultConfig returns the bus's documented default mailbox size.
func DefaultConfig() Config {
	return Config{MailboxSize: 10000}
}

// handlerStats accumulates the statistics the bus is required to track
// for one (kind, handler) subscription.
type handlerStats struct {
	delivered   uint64
	errors      uint64
	latencySumNs int64
	latencyMaxNs int64

	// latencySamples is a fixed-capacity ring buffer of recent handler
	// latencies, used to estimate p99 on read; latencySampleNext is the
	// next write position (mod latencySampleCap).
	latencySamples   [latencySampleCap]int64
	latencySampleLen int
	latencySampleNext int
}

// record appends a latency sample to the ring buffer, overwriting the
// oldest sample once full.
func (s *handlerStats) record(latencyNs int64) {
	s.latencySamples[s.latencySampleNext] = latencyNs
	s.latencySampleNext = (s.latencySampleNext + 1) % latencySampleCap
	if s.latencySampleLen < latencySampleCap {
		s.latencySampleLen++
	}
}

// p99 returns the 99th-percentile latency across the current samples, or
// 0 if none have been recorded.
func (s *handlerStats) p99() int64 {
	if s.latencySampleLen == 0 {
		return 0
	}
	samples := make([]int64, s.latencySampleLen)
	copy(samples, s.latencySamples[:s.latencySampleLen])
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	idx := int(float64(len(samples))*0.99)
	if idx >= len(samples) {
		idx = len(samples) - 1
	}
	return samples[idx]
}

type subscription struct {
	kind    events.Kind
	name    string // identifies the handler for idempotent re-subscribe checks
	handler Handler
	box     *mailbox
	doorbell chan struct{}
	stopCh  chan struct{}
	done    chan struct{}

	mu    sync.Mutex
	stats handlerStats
}

// Bus is the process-wide publish/subscribe broker.
type Bus struct {
	cfg    Config
	log    zerolog.Logger
	mu     sync.RWMutex
	subs   map[events.Kind]map[string]*subscription
	stopped bool

	publishedMu sync.Mutex
	published   map[events.Kind]uint64

	// seq assigns each published event a monotonically increasing,
	// process-wide sequence number.
	seq uint64
}

// New creates a Bus. log should already carry a "component" field.
func New(cfg Config, log zerolog.Logger) *Bus {
	if cfg.MailboxSize <= 0 {
		cfg = DefaultConfig()
	}
	return &Bus{
		cfg:       cfg,
		log:       log,
		subs:      make(map[events.Kind]map[string]*subscription),
		published: make(map[events.Kind]uint64),
	}
}

// Subscribe registers handler under name for kind. Subscribing the same
// name to the same kind twice is a no-op that logs a warning (idempotent
// per the bus's delivery contract).
func (b *Bus) Subscribe(kind events.Kind, name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[kind] == nil {
		b.subs[kind] = make(map[string]*subscription)
	}
	if _, exists := b.subs[kind][name]; exists {
		b.log.Warn().Str("kind", kind.String()).Str("handler", name).
			Msg("duplicate subscription ignored")
		return
	}

	sub := &subscription{
		kind:     kind,
		name:     name,
		handler:  handler,
		box:      newMailbox(b.cfg.MailboxSize),
		doorbell: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	b.subs[kind][name] = sub

	go b.runHandler(sub)
}

// Unsubscribe removes the (kind, name) association. Safe to call while
// publishing is in progress.
func (b *Bus) Unsubscribe(kind events.Kind, name string) {
	b.mu.Lock()
	sub, ok := b.subs[kind][name]
	if ok {
		delete(b.subs[kind], name)
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	close(sub.stopCh)
	<-sub.done
}

// Publish offers ev to every handler subscribed to ev.Kind and returns
// once all of them have been offered the event (not once they've
// finished processing it).
func (b *Bus) Publish(ev events.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped {
		return
	}

	ev.SequenceNum = atomic.AddUint64(&b.seq, 1)

	b.publishedMu.Lock()
	b.published[ev.Kind]++
	b.publishedMu.Unlock()

	for _, sub := range b.subs[ev.Kind] {
		sub.box.publish(ev)
		select {
		case sub.doorbell <- struct{}{}:
		default:
		}
	}
}

// runHandler is the dedicated consumer goroutine for one subscription: it
// drains the mailbox in FIFO order, isolating handler panics/errors so a
// broken handler never affects another subscription.
func (b *Bus) runHandler(sub *subscription) {
	defer close(sub.done)

	for {
		for {
			ev, ok := sub.box.tryConsume()
			if !ok {
				break
			}
			b.deliver(sub, ev)
		}

		select {
		case <-sub.stopCh:
			// Drain whatever arrived between the last tryConsume and stop.
			for {
				ev, ok := sub.box.tryConsume()
				if !ok {
					return
				}
				b.deliver(sub, ev)
			}
		case <-sub.doorbell:
		}
	}
}

func (b *Bus) deliver(sub *subscription, ev events.Event) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.recordError(sub)
			b.log.Error().
				Str("kind", sub.kind.String()).
				Str("handler", sub.name).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()

	err := sub.handler(context.Background(), ev)

	latency := time.Since(start)
	sub.mu.Lock()
	sub.stats.delivered++
	sub.stats.latencySumNs += latency.Nanoseconds()
	if latency.Nanoseconds() > sub.stats.latencyMaxNs {
		sub.stats.latencyMaxNs = latency.Nanoseconds()
	}
	sub.stats.record(latency.Nanoseconds())
	sub.mu.Unlock()

	if err != nil {
		b.recordError(sub)
		b.log.Error().
			Str("kind", sub.kind.String()).
			Str("handler", sub.name).
			Err(err).
			Msg("event handler returned error")
	}
}

func (b *Bus) recordError(sub *subscription) {
	sub.mu.Lock()
	sub.stats.errors++
	sub.mu.Unlock()
}

// Stop stops accepting new publishes and waits (up to drainTimeout) for
// every handler's queued events to be delivered, then joins all handler
// goroutines. Idempotent.
func (b *Bus) Stop(drainTimeout time.Duration) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	var all []*subscription
	for _, byName := range b.subs {
		for _, sub := range byName {
			all = append(all, sub)
		}
	}
	b.mu.Unlock()

	deadline := time.Now().Add(drainTimeout)
	for _, sub := range all {
		close(sub.stopCh)
	}
	for _, sub := range all {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		select {
		case <-sub.done:
		case <-time.After(remaining):
		}
	}
}

// KindStats summarizes the bus's required statistics for one kind.
type KindStats struct {
	Published      uint64
	Delivered      uint64
	HandlerErrors  uint64
	AvgLatencyNs   int64
	P99LatencyNs   int64
	QueueDepth     int
	DroppedOverrun uint64
}

// Stats returns a snapshot of KindStats for kind, aggregated across every
// handler subscribed to it: counters are summed, AvgLatencyNs averages over
// all handlers' deliveries, and P99LatencyNs is the highest per-handler p99.
func (b *Bus) Stats(kind events.Kind) KindStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.publishedMu.Lock()
	published := b.published[kind]
	b.publishedMu.Unlock()

	out := KindStats{Published: published}
	var latencySumNs int64
	for _, sub := range b.subs[kind] {
		sub.mu.Lock()
		out.Delivered += sub.stats.delivered
		out.HandlerErrors += sub.stats.errors
		latencySumNs += sub.stats.latencySumNs
		if p99 := sub.stats.p99(); p99 > out.P99LatencyNs {
			out.P99LatencyNs = p99
		}
		sub.mu.Unlock()
		out.QueueDepth += sub.box.depth()
		out.DroppedOverrun += sub.box.droppedCount()
	}
	if out.Delivered > 0 {
		out.AvgLatencyNs = latencySumNs / int64(out.Delivered)
	}
	return out
}
