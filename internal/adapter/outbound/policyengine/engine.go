package policyengine

import (
	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

// Source is anything that publishes a current policy.Engine snapshot --
// internal/adapter/outbound/store.ConfigStore satisfies this.
type Source interface {
	Engine() policy.Engine
}

// CachingEngine decorates a Source's current engine with a bounded LRU
// result cache, the same shape the teacher's PolicyService used for its
// CEL evaluation results. Invalidate clears the cache; the cache does not
// notice on its own when the source republishes, and no caller in the
// repository invokes Invalidate outside tests.
type CachingEngine struct {
	source Source
	cache  *ResultCache
}

// NewCachingEngine wraps source with an LRU cache bounded at maxSize
// entries.
func NewCachingEngine(source Source, maxSize int) *CachingEngine {
	return &CachingEngine{
		source: source,
		cache:  NewResultCache(maxSize),
	}
}

// Invalidate clears the cache. Call this every time the wrapped Source
// republishes a new engine.
func (e *CachingEngine) Invalidate() {
	e.cache.Clear()
}

// Resolve implements policy.Engine, serving cached decisions where
// possible and falling back to the current engine snapshot on a miss.
func (e *CachingEngine) Resolve(ctx policy.EvaluationContext) policy.Decision {
	key := computeCacheKey(ctx)
	if decision, ok := e.cache.Get(key); ok {
		return decision
	}

	decision := e.source.Engine().Resolve(ctx)
	e.cache.Put(key, decision)
	return decision
}

var _ policy.Engine = (*CachingEngine)(nil)
