// Package policyengine wraps a policy.Engine with a bounded LRU result
// cache, the same caching shape the teacher's policy service used for its
// CEL-based evaluator, adapted to cache whole Decision values keyed by the
// evaluation context rather than CEL program output.
package policyengine

import (
	"encoding/json"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

// lruEntry is a doubly-linked list node for the LRU cache.
type lruEntry struct {
	key      uint64
	decision policy.Decision
	prev     *lruEntry
	next     *lruEntry
}

// ResultCache provides bounded LRU caching for resolved decisions. Get and
// Put both mutate LRU order, so both take the lock.
type ResultCache struct {
	mu      sync.Mutex
	entries map[uint64]*lruEntry
	head    *lruEntry // most recently used
	tail    *lruEntry // least recently used
	maxSize int
}

// NewResultCache creates an LRU cache bounded at maxSize entries.
func NewResultCache(maxSize int) *ResultCache {
	return &ResultCache{
		entries: make(map[uint64]*lruEntry, maxSize),
		maxSize: maxSize,
	}
}

// Get retrieves a cached decision, promoting it to most-recently-used on
// hit.
func (c *ResultCache) Get(key uint64) (policy.Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.moveToHeadLocked(e)
		return e.decision, true
	}
	return policy.Decision{}, false
}

// Put stores a decision, evicting the least recently used entry if the
// cache is at capacity.
func (c *ResultCache) Put(key uint64, decision policy.Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.decision = decision
		c.moveToHeadLocked(e)
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}
	e := &lruEntry{key: key, decision: decision}
	c.entries[key] = e
	c.pushHeadLocked(e)
}

// Clear empties the cache. CachingEngine.Invalidate calls it; a stale
// entry left after the underlying engine is republished would serve a
// decision from a document that no longer exists.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*lruEntry, c.maxSize)
	c.head = nil
	c.tail = nil
}

// Size returns the current number of cached entries.
func (c *ResultCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache) moveToHeadLocked(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

func (c *ResultCache) pushHeadLocked(e *lruEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *ResultCache) unlinkLocked(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (c *ResultCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}

// computeCacheKey hashes the fields Condition.Matches consults plus the
// arguments a policy's match expression can read, so two calls that would
// resolve identically always share a cache slot.
func computeCacheKey(ctx policy.EvaluationContext) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(string(ctx.Mode))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(ctx.Tool)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(ctx.Model)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(ctx.MCPServer)
	_, _ = h.Write([]byte{0})
	if args, err := json.Marshal(ctx.Arguments); err == nil {
		_, _ = h.Write(args)
	}
	return h.Sum64()
}
