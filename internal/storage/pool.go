package storage

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultPoolSize is the default maximum number of simultaneously open
// per-pair stores.
const DefaultPoolSize = 200

// Pool bounds the number of open per-pair Stores and evicts the least-
// recently-used one when full. Acquire/Release for the same key is
// serialized; concurrent acquires for the same key return the same
// logical handle.
type Pool struct {
	cfg  Config
	mu   sync.Mutex
	cache *lru.Cache // Key -> *pooledStore
}

type pooledStore struct {
	store *Store
	refs  int
}

// NewPool creates a pool bounded at size, evicting (and closing) the
// least-recently-used store whenever an eviction makes room for a new one
// with zero outstanding references. Stores with outstanding references are
// never evicted mid-use: the LRU promotes them on every Acquire, so a busy
// store is never the oldest entry.
func NewPool(cfg Config, size int) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	p := &Pool{cfg: cfg}

	cache, err := lru.NewWithEvict(size, func(key interface{}, value interface{}) {
		ps := value.(*pooledStore)
		if ps.refs == 0 {
			ps.store.Close()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("new storage pool: %w", err)
	}
	p.cache = cache
	return p, nil
}

// Acquire returns the store for key, opening it if not already cached, and
// marks it as referenced so it isn't closed out from under the caller.
// Callers must call Release when done.
func (p *Pool) Acquire(key Key) (*Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.cache.Get(key); ok {
		ps := v.(*pooledStore)
		ps.refs++
		return ps.store, nil
	}

	store, err := Open(key, p.cfg)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, &pooledStore{store: store, refs: 1})
	return store, nil
}

// Release drops a reference acquired via Acquire. It does not close the
// store immediately: the store stays cached (and reusable) until the LRU
// evicts it.
func (p *Pool) Release(key Key) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.cache.Peek(key)
	if !ok {
		return
	}
	ps := v.(*pooledStore)
	if ps.refs > 0 {
		ps.refs--
	}
}

// Len returns the number of stores currently cached.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Len()
}

// Close closes every cached store.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, key := range p.cache.Keys() {
		if v, ok := p.cache.Peek(key); ok {
			v.(*pooledStore).store.Close()
		}
	}
	p.cache.Purge()
}
