// Package cache provides an LRU cache for prepared statements keyed by
// compiled SQL text.
package cache

import (
	"container/list"
	"database/sql"
	"sync"
	"sync/atomic"
)

// DefaultStmtCacheCapacity is the default maximum number of cached
// prepared statements.
const DefaultStmtCacheCapacity = 1000

// StmtCache stores prepared statements with LRU eviction. Evicted and
// replaced statements are closed; callers must not close statements they
// obtained from the cache.
type StmtCache struct {
	mu       sync.RWMutex
	capacity int
	items    map[string]*list.Element
	order    *list.List

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type entry struct {
	key  string
	stmt *sql.Stmt
}

// NewStmtCache creates a statement cache with the default capacity.
func NewStmtCache() *StmtCache {
	return NewStmtCacheWithCapacity(DefaultStmtCacheCapacity)
}

// NewStmtCacheWithCapacity creates a statement cache with the given
// capacity; non-positive values fall back to the default.
func NewStmtCacheWithCapacity(capacity int) *StmtCache {
	if capacity <= 0 {
		capacity = DefaultStmtCacheCapacity
	}
	return &StmtCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached statement for the SQL text, marking it most
// recently used.
func (sc *StmtCache) Get(key string) (*sql.Stmt, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	elem, ok := sc.items[key]
	if !ok {
		sc.misses.Add(1)
		return nil, false
	}

	sc.order.MoveToFront(elem)
	sc.hits.Add(1)
	return elem.Value.(*entry).stmt, true
}

// Set stores a prepared statement under the SQL text, evicting the least
// recently used entry when at capacity. Setting an existing key closes the
// previous statement.
func (sc *StmtCache) Set(key string, stmt *sql.Stmt) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if elem, ok := sc.items[key]; ok {
		sc.order.MoveToFront(elem)
		e := elem.Value.(*entry)
		_ = e.stmt.Close()
		e.stmt = stmt
		return
	}

	if sc.order.Len() >= sc.capacity {
		sc.evictOldest()
	}
	sc.items[key] = sc.order.PushFront(&entry{key: key, stmt: stmt})
}

// evictOldest must be called with the lock held.
func (sc *StmtCache) evictOldest() {
	elem := sc.order.Back()
	if elem == nil {
		return
	}

	sc.order.Remove(elem)
	e := elem.Value.(*entry)
	delete(sc.items, e.key)
	_ = e.stmt.Close()
	sc.evictions.Add(1)
}

// Clear closes and removes all cached statements.
func (sc *StmtCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for elem := sc.order.Front(); elem != nil; elem = elem.Next() {
		_ = elem.Value.(*entry).stmt.Close()
	}
	sc.items = make(map[string]*list.Element, sc.capacity)
	sc.order.Init()
}

// Stats holds cache performance counters.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// Stats returns a snapshot of the cache counters.
func (sc *StmtCache) Stats() Stats {
	sc.mu.RLock()
	size := sc.order.Len()
	sc.mu.RUnlock()

	hits := sc.hits.Load()
	misses := sc.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      size,
		Capacity:  sc.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: sc.evictions.Load(),
		HitRate:   hitRate,
	}
}
