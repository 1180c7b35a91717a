// Package eventbus implements the publish/subscribe broker every component
// talks through: subscribe(kind, handler), publish(event), unsubscribe,
// stop. Each (kind, handler) subscription owns its own bounded mailbox —
// a cache-line-padded circular buffer claimed with an atomic increment, the same
// coordination scheme a lock-free single-producer/single-consumer ring
// buffer uses — so a slow handler never blocks delivery to a fast one.
// Unlike a hard-capacity ring buffer that rejects once full, an overrun
// mailbox drops its oldest unconsumed slot and keeps accepting, per the
// bus's drop-oldest back-pressure default.
package eventbus

import (
	"sync/atomic"

	"github.com/rishav/cryptoengine/internal/events"
)

// mailboxSlot is one ring buffer cell. Padded to a 64-byte cache line so
// adjacent slots don't false-share between the publishing goroutine and
// the mailbox's single consumer goroutine.
type mailboxSlot struct {
	sequenceNum uint64
	event       events.Event
	_           [16]byte
}

// mailbox is a bounded, single-consumer ring buffer of events for one
// (kind, handler) subscription.
type mailbox struct {
	size      uint64
	indexMask uint64
	slots     []mailboxSlot

	cursor   uint64 // highest published sequence, claimed by publishers via atomic add
	consumed uint64 // highest sequence the consumer has read

	dropped uint64 // count of events dropped due to overrun
}

// newMailbox creates a mailbox with size slots, rounded up to the next
// power of two (required for the fast index mask).
func newMailbox(size int) *mailbox {
	n := nextPowerOfTwo(size)
	return &mailbox{
		size:      n,
		indexMask: n - 1,
		slots:     make([]mailboxSlot, n),
	}
}

func nextPowerOfTwo(n int) uint64 {
	if n <= 1 {
		return 1
	}
	v := uint64(n - 1)
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}

// publish claims the next slot and writes ev into it. If the mailbox is
// full (the claimed slot has not yet been consumed), the oldest
// unconsumed slot is overwritten and dropped is incremented — this is the
// drop-oldest overflow policy; it never blocks the caller.
func (m *mailbox) publish(ev events.Event) {
	seq := atomic.AddUint64(&m.cursor, 1)
	consumed := atomic.LoadUint64(&m.consumed)

	if seq > consumed+m.size {
		atomic.AddUint64(&m.dropped, 1)
		// Advance the consumed watermark so the slot we're about to
		// overwrite is no longer considered pending; the consumer will
		// simply never see the event it would have held.
		atomic.StoreUint64(&m.consumed, seq-m.size)
	}

	slot := &m.slots[seq&m.indexMask]
	slot.event = ev
	atomic.StoreUint64(&slot.sequenceNum, seq)
}

// tryConsume returns the next undelivered event, if one is ready.
func (m *mailbox) tryConsume() (events.Event, bool) {
	next := atomic.LoadUint64(&m.consumed) + 1
	slot := &m.slots[next&m.indexMask]

	if atomic.LoadUint64(&slot.sequenceNum) != next {
		return events.Event{}, false
	}

	ev := slot.event
	atomic.StoreUint64(&m.consumed, next)
	return ev, true
}

// depth returns the number of events currently queued.
func (m *mailbox) depth() int {
	cursor := atomic.LoadUint64(&m.cursor)
	consumed := atomic.LoadUint64(&m.consumed)
	if cursor < consumed {
		return 0
	}
	return int(cursor - consumed)
}

// droppedCount returns the cumulative number of dropped events.
func (m *mailbox) droppedCount() uint64 {
	return atomic.LoadUint64(&m.dropped)
}
