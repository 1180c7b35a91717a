// Package lifecycle provides the two component shapes every long-running
// piece of the engine is built from: Always-on components own a
// background task started by Start and stopped by Stop; Reactive
// components own no task, and instead subscribe to bus events in Start
// and unsubscribe in Stop. Both expose a uniform health query.
package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Health is the uniform status query every component exposes.
type Health struct {
	Running            bool
	LastActivityUnixNs int64
	ErrorCount uint64
}

// Base is embedded by both component shapes to provide Health() and the
// bookkeeping it needs. It is safe for concurrent use.
type Base struct {
	running     int32
	lastActive  int64
	errorCount  uint64
}

// MarkActive records that the component did useful work just now.
func (b *Base) MarkActive(now time.Time) {
	atomic.StoreInt64(&b.lastActive, now.UnixNano())
}

// MarkError increments the error counter.
func (b *Base) MarkError() {
	atomic.AddUint64(&b.errorCount, 1)
}

func (b *Base) setRunning(running bool) {
	if running {
		atomic.StoreInt32(&b.running, 1)
	} else {
		atomic.StoreInt32(&b.running, 0)
	}
}

// Health returns the component's current status.
func (b *Base) Health() Health {
	return Health{
		Running:            atomic.LoadInt32(&b.running) == 1,
		LastActivityUnixNs: atomic.LoadInt64(&b.lastActive),
		ErrorCount:         atomic.LoadUint64(&b.errorCount),
	}
}

// Component is implemented by both Always-on and Reactive components.
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() Health
}

// AlwaysOn runs a background loop supplied at construction. Start and Stop
// are idempotent and Stop survives being called before Start or twice in
// a row.
type AlwaysOn struct {
	Base
	name string
	loop func(ctx context.Context, b *Base)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAlwaysOn creates an always-on component named name; loop is run in
// its own goroutine between Start and Stop and should return promptly
// once ctx is cancelled.
func NewAlwaysOn(name string, loop func(ctx context.Context, b *Base)) *AlwaysOn {
	return &AlwaysOn{name: name, loop: loop}
}

// Start launches the background loop. Calling Start while already running
// is a no-op.
func (a *AlwaysOn) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.setRunning(true)

	go func() {
		defer close(a.done)
		a.loop(runCtx, &a.Base)
	}()
	return nil
}

// Stop signals the loop to exit and waits for it to return, or for ctx to
// be cancelled. Idempotent; safe to call without a prior Start.
func (a *AlwaysOn) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	done := a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	a.setRunning(false)

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Name returns the component's configured name.
func (a *AlwaysOn) Name() string { return a.name }

// Reactive has no background task; it subscribes to bus events between
// Start and Stop. subscribeFn/unsubscribeFn are supplied by the caller so
// this package has no dependency on eventbus.
type Reactive struct {
	Base
	name        string
	subscribe   func(ctx context.Context) error
	unsubscribe func(ctx context.Context) error

	mu      sync.Mutex
	started bool
}

// NewReactive creates a reactive component named name.
func NewReactive(name string, subscribe, unsubscribe func(ctx context.Context) error) *Reactive {
	return &Reactive{name: name, subscribe: subscribe, unsubscribe: unsubscribe}
}

// Start subscribes to this component's event kinds. Idempotent.
func (r *Reactive) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if err := r.subscribe(ctx); err != nil {
		return err
	}
	r.started = true
	r.setRunning(true)
	return nil
}

// Stop unsubscribes. Idempotent.
func (r *Reactive) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	if err := r.unsubscribe(ctx); err != nil {
		return err
	}
	r.started = false
	r.setRunning(false)
	return nil
}

// Name returns the component's configured name.
func (r *Reactive) Name() string { return r.name }
