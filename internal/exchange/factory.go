package exchange

import (
	"context"
	"fmt"
	"sync"
)

// Key identifies one cacheable adapter instance.
type Key struct {
	Name    string
	Market  MarketType
	Testnet bool
}

// Builder constructs a new, unconnected Adapter for key. Registered by
// callers (e.g. internal/config's Build) for each supported exchange name.
type Builder func(key Key) (Adapter, error)

// Factory caches at most one adapter instance per (name, market, testnet)
// triple, connecting lazily on first Acquire and disconnecting everything
// on Shutdown.
type Factory struct {
	mu       sync.Mutex
	builders map[string]Builder
	cache    map[Key]Adapter
}

// NewFactory creates an empty Factory.
func NewFactory() *Factory {
	return &Factory{
		builders: make(map[string]Builder),
		cache:    make(map[Key]Adapter),
	}
}

// Register associates name with a Builder; name matches Key.Name.
func (f *Factory) Register(name string, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[name] = builder
}

// Acquire returns the cached adapter for key, building and connecting it
// on first use.
func (f *Factory) Acquire(ctx context.Context, key Key) (Adapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if a, ok := f.cache[key]; ok {
		return a, nil
	}

	builder, ok := f.builders[key.Name]
	if !ok {
		return nil, fmt.Errorf("exchange: no adapter registered for %q", key.Name)
	}

	a, err := builder(key)
	if err != nil {
		return nil, fmt.Errorf("exchange: build adapter %q: %w", key.Name, err)
	}
	if err := a.Connect(ctx); err != nil {
		return nil, fmt.Errorf("exchange: connect adapter %q: %w", key.Name, err)
	}

	f.cache[key] = a
	return a, nil
}

// Shutdown disconnects every cached adapter.
func (f *Factory) Shutdown(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key, a := range f.cache {
		if err := a.Disconnect(ctx); err != nil {
			_ = err // best-effort; caller's logger records via adapter internals
		}
		delete(f.cache, key)
	}
}
