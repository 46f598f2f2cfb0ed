// # internal/engine/cache/cache.go
package cache

import (
	"container/list"
	"driftscan/internal/shared/observability"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultMaxSize = 1000

// Options configures a Manager.
type Options[V any] struct {
	// Name labels the cache in metrics and Stats.
	Name string
	// MaxSize bounds the number of entries; values <= 0 use DefaultMaxSize.
	MaxSize int
	// TTL expires entries this long after their last Set. Zero disables expiry.
	TTL time.Duration
	// OnEvict is called for every entry removed by capacity pressure, TTL
	// expiry or invalidation. It runs after the cache lock is released.
	OnEvict func(key string, value V)
}

// Manager is a thread-safe, content-hash keyed LRU cache with optional TTL
// and dependent-aware invalidation.
//
// Usage:
//
//	c := cache.New(cache.Options[*parser.ParseResult]{Name: "parse", MaxSize: 512})
//	key := cache.ComputeHash(source)
//	c.Set(key, result)
//	if v, ok := c.Get(key); ok { ... }
type Manager[V any] struct {
	mu      sync.Mutex
	name    string
	maxSize int
	ttl     time.Duration
	onEvict func(string, V)
	now     func() time.Time

	items map[string]*list.Element
	order *list.List // front = most-recently used

	hits          atomic.Int64
	misses        atomic.Int64
	evictions     atomic.Int64
	expirations   atomic.Int64
	invalidations atomic.Int64
	size          atomic.Int64
}

// Entry is a single cached value.
type Entry[V any] struct {
	Key            string
	Value          V
	CreatedAt      time.Time
	LastAccessTime time.Time
	Dependents     map[string]struct{}
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Name          string
	Hits          int64
	Misses        int64
	Evictions     int64
	Expirations   int64
	Invalidations int64
	Size          int
	MaxSize       int
	HitRate       float64
}

type removed[V any] struct {
	key   string
	value V
}

func New[V any](opts Options[V]) *Manager[V] {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	name := opts.Name
	if name == "" {
		name = "default"
	}
	return &Manager[V]{
		name:    name,
		maxSize: maxSize,
		ttl:     opts.TTL,
		onEvict: opts.OnEvict,
		now:     time.Now,
		items:   make(map[string]*list.Element, maxSize),
		order:   list.New(),
	}
}

// Get returns the cached value for key. A hit refreshes the entry's recency;
// an expired entry is removed and reported as a miss.
func (c *Manager[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		c.recordMiss()
		var zero V
		return zero, false
	}

	entry := el.Value.(*Entry[V])
	now := c.now()
	if c.expiredLocked(entry, now) {
		c.removeElementLocked(el)
		c.mu.Unlock()
		c.expirations.Add(1)
		c.recordMiss()
		c.notify([]removed[V]{{key: entry.Key, value: entry.Value}})
		var zero V
		return zero, false
	}

	entry.LastAccessTime = now
	c.order.MoveToFront(el)
	value := entry.Value
	c.mu.Unlock()

	c.hits.Add(1)
	observability.CacheHitsTotal.WithLabelValues(c.name).Inc()
	return value, true
}

// Peek returns the cached value without touching recency or statistics.
func (c *Manager[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok || c.expiredLocked(el.Value.(*Entry[V]), c.now()) {
		var zero V
		return zero, false
	}
	return el.Value.(*Entry[V]).Value, true
}

// Has reports whether a live entry exists for key without refreshing it.
func (c *Manager[V]) Has(key string) bool {
	_, ok := c.Peek(key)
	return ok
}

// Set inserts or replaces the value for key. Inserting a new key into a full
// cache first evicts the least-recently-used entry.
func (c *Manager[V]) Set(key string, value V) {
	c.mu.Lock()
	now := c.now()

	if el, ok := c.items[key]; ok {
		entry := el.Value.(*Entry[V])
		entry.Value = value
		entry.CreatedAt = now
		entry.LastAccessTime = now
		c.order.MoveToFront(el)
		c.mu.Unlock()
		return
	}

	var evicted []removed[V]
	if c.order.Len() >= c.maxSize {
		if back := c.order.Back(); back != nil {
			entry := back.Value.(*Entry[V])
			c.removeElementLocked(back)
			evicted = append(evicted, removed[V]{key: entry.Key, value: entry.Value})
		}
	}

	entry := &Entry[V]{
		Key:            key,
		Value:          value,
		CreatedAt:      now,
		LastAccessTime: now,
	}
	c.items[key] = c.order.PushFront(entry)
	c.size.Store(int64(c.order.Len()))
	c.mu.Unlock()

	if len(evicted) > 0 {
		c.evictions.Add(int64(len(evicted)))
		observability.CacheEvictionsTotal.WithLabelValues(c.name).Add(float64(len(evicted)))
		c.notify(evicted)
	}
}

// AddDependent records that dependentKey derives from key, so invalidating
// key also removes dependentKey. It is a no-op when key is absent.
func (c *Manager[V]) AddDependent(key, dependentKey string) bool {
	if key == dependentKey {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	entry := el.Value.(*Entry[V])
	if entry.Dependents == nil {
		entry.Dependents = make(map[string]struct{})
	}
	entry.Dependents[dependentKey] = struct{}{}
	return true
}

// Dependents returns the keys recorded as dependents of key.
func (c *Manager[V]) Dependents(key string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil
	}
	deps := el.Value.(*Entry[V]).Dependents
	out := make([]string, 0, len(deps))
	for k := range deps {
		out = append(out, k)
	}
	return out
}

// Invalidate removes key, every key recorded as its dependent (transitively)
// and every key in extraDependents, in one atomic step. It returns the number
// of entries actually removed.
func (c *Manager[V]) Invalidate(key string, extraDependents ...string) int {
	c.mu.Lock()

	queue := make([]string, 0, 1+len(extraDependents))
	queue = append(queue, key)
	queue = append(queue, extraDependents...)
	seen := make(map[string]bool, len(queue))

	var out []removed[V]
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if seen[k] {
			continue
		}
		seen[k] = true

		el, ok := c.items[k]
		if !ok {
			continue
		}
		entry := el.Value.(*Entry[V])
		for dep := range entry.Dependents {
			if !seen[dep] {
				queue = append(queue, dep)
			}
		}
		c.removeElementLocked(el)
		out = append(out, removed[V]{key: entry.Key, value: entry.Value})
	}
	c.mu.Unlock()

	if len(out) > 0 {
		c.invalidations.Add(int64(len(out)))
		observability.CacheInvalidationsTotal.WithLabelValues(c.name).Add(float64(len(out)))
		c.notify(out)
	}
	return len(out)
}

// Keys returns all keys currently in the cache, most-recently used first.
func (c *Manager[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*Entry[V]).Key)
	}
	return keys
}

// Len returns the current number of entries, expired ones included until
// they are touched.
func (c *Manager[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cap returns the configured maximum size.
func (c *Manager[V]) Cap() int {
	return c.maxSize
}

// Clear removes every entry without touching the counters.
func (c *Manager[V]) Clear() {
	c.mu.Lock()
	var out []removed[V]
	if c.onEvict != nil {
		for el := c.order.Front(); el != nil; el = el.Next() {
			entry := el.Value.(*Entry[V])
			out = append(out, removed[V]{key: entry.Key, value: entry.Value})
		}
	}
	c.order.Init()
	c.items = make(map[string]*list.Element, c.maxSize)
	c.size.Store(0)
	c.mu.Unlock()

	c.notify(out)
}

// Stats reads the counters without taking the cache lock; the values are
// individually consistent but may interleave with concurrent writers.
func (c *Manager[V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	rate := 0.0
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Name:          c.name,
		Hits:          hits,
		Misses:        misses,
		Evictions:     c.evictions.Load(),
		Expirations:   c.expirations.Load(),
		Invalidations: c.invalidations.Load(),
		Size:          int(c.size.Load()),
		MaxSize:       c.maxSize,
		HitRate:       rate,
	}
}

func (c *Manager[V]) expiredLocked(entry *Entry[V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.CreatedAt) > c.ttl
}

// removeElementLocked drops el from both the list and the map.
// Caller must hold c.mu.
func (c *Manager[V]) removeElementLocked(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*Entry[V]).Key)
	c.size.Store(int64(c.order.Len()))
}

func (c *Manager[V]) recordMiss() {
	c.misses.Add(1)
	observability.CacheMissesTotal.WithLabelValues(c.name).Inc()
}

func (c *Manager[V]) notify(entries []removed[V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range entries {
		c.onEvict(e.key, e.value)
	}
}
