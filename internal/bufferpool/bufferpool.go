// Package bufferpool provides the bounded LRU cache that sits in front of
// the page store. Keys are page identifiers or "schema:<table>".
package bufferpool

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/leapstack-labs/gsql/internal/metrics"
	"github.com/leapstack-labs/gsql/pkg/core"
)

// DefaultSize is the capacity used when none is configured.
const DefaultSize = 1000

// SchemaKey returns the cache key of a table schema.
func SchemaKey(table string) string {
	return "schema:" + strings.ToLower(table)
}

type entry struct {
	value    []byte
	accesses int64
}

// Pool is a strict-LRU cache of byte values. It is safe for concurrent use.
type Pool struct {
	mu        sync.Mutex
	lru       *simplelru.LRU
	capacity  int
	enabled   bool
	hits      int64
	misses    int64
	evictions int64
}

// New creates a pool holding at most capacity entries.
func New(capacity int) (*Pool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer pool capacity must be positive, got %d", capacity)
	}
	lru, err := simplelru.NewLRU(capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}
	return &Pool{lru: lru, capacity: capacity, enabled: true}, nil
}

// Get returns a copy of the cached value and marks it most recently used.
func (p *Pool) Get(key string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		p.misses++
		metrics.BufferPoolOpsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	v, ok := p.lru.Get(key)
	if !ok {
		p.misses++
		metrics.BufferPoolOpsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	e := v.(*entry)
	e.accesses++
	p.hits++
	metrics.BufferPoolOpsTotal.WithLabelValues("hit").Inc()
	return clone(e.value), true
}

// Put stores a copy of value. At capacity the least recently used entry is
// evicted first. priority is accepted for API compatibility and ignored:
// eviction order is strictly LRU.
func (p *Pool) Put(key string, value []byte, priority bool) {
	_ = priority

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}
	if v, ok := p.lru.Get(key); ok {
		e := v.(*entry)
		e.value = clone(value)
		e.accesses++
		metrics.BufferPoolOpsTotal.WithLabelValues("put").Inc()
		return
	}
	if p.lru.Len() >= p.capacity {
		p.lru.RemoveOldest()
		p.evictions++
		metrics.BufferPoolOpsTotal.WithLabelValues("evict").Inc()
	}
	p.lru.Add(key, &entry{value: clone(value)})
	metrics.BufferPoolOpsTotal.WithLabelValues("put").Inc()
}

// Access returns the access count of key without touching recency.
func (p *Pool) Access(key string) (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.lru.Peek(key)
	if !ok {
		return 0, false
	}
	return v.(*entry).accesses, true
}

// Invalidate removes key.
func (p *Pool) Invalidate(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lru.Remove(key) {
		metrics.BufferPoolOpsTotal.WithLabelValues("invalidate").Inc()
	}
}

// InvalidateAll removes every entry. Counters are kept.
func (p *Pool) InvalidateAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lru.Purge()
	metrics.BufferPoolOpsTotal.WithLabelValues("invalidate").Inc()
}

// SetEnabled toggles the pool. Disabling drops every entry and makes Get
// always miss.
func (p *Pool) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enabled = enabled
	if !enabled {
		p.lru.Purge()
	}
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() core.BufferPoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := core.BufferPoolStats{
		Size:      p.lru.Len(),
		Capacity:  p.capacity,
		Hits:      p.hits,
		Misses:    p.misses,
		Evictions: p.evictions,
		Enabled:   p.enabled,
	}
	if total := p.hits + p.misses; total > 0 {
		s.HitRatio = float64(p.hits) / float64(total)
	}
	return s
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
