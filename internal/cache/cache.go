// Package cache memoizes analyses keyed by a hash of the snippet and its
// options.
package cache

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

// Defaults used when New is given non-positive values.
const (
	DefaultSize = 256
	DefaultTTL  = 10 * time.Minute
)

// Stats counts cache lookups.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// Cache is a TTL-bounded LRU of analyses. Concurrent misses for the same key
// share a single computation. Cached analyses are shared between callers
// and must be treated as read-only.
type Cache struct {
	lru   *expirable.LRU[uint64, analysis.CodeAnalysis]
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache holding at most size entries for ttl each.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{lru: expirable.NewLRU[uint64, analysis.CodeAnalysis](size, nil, ttl)}
}

// Key hashes the language, options and code of a request.
func Key(code string, opts analysis.Options) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(string(analysis.NormalizeLanguage(string(opts.Language))))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(string(opts.UserLevel))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.FormatBool(opts.IncludePerformanceAnalysis))
	_, _ = d.WriteString(strconv.FormatBool(opts.IncludeSecurity))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(code)
	return d.Sum64()
}

// GetOrCompute returns the cached analysis for (code, opts), or runs compute
// and stores its result. The second return value reports a cache hit.
// Failure analyses are returned but never stored.
func (c *Cache) GetOrCompute(code string, opts analysis.Options, compute func() analysis.CodeAnalysis) (analysis.CodeAnalysis, bool) {
	key := Key(code, opts)
	if a, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return a, true
	}
	c.misses.Add(1)

	v, _, _ := c.group.Do(strconv.FormatUint(key, 16), func() (interface{}, error) {
		if a, ok := c.lru.Get(key); ok {
			return a, nil
		}
		a := compute()
		if !a.Failed() {
			c.lru.Add(key, a)
		}
		return a, nil
	})
	return v.(analysis.CodeAnalysis), false
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: c.lru.Len()}
}

// Analyzer wraps an engine with a cache. Requests that carry a feedback
// context are personalized, so they always bypass the cache.
type Analyzer struct {
	engine *analysis.Engine
	cache  *Cache
}

// NewAnalyzer returns an analyzer backed by c. A nil cache disables caching.
func NewAnalyzer(e *analysis.Engine, c *Cache) *Analyzer {
	return &Analyzer{engine: e, cache: c}
}

// Analyze returns a cached analysis when possible.
func (a *Analyzer) Analyze(code string, opts analysis.Options, fctx *analysis.FeedbackContext) analysis.CodeAnalysis {
	if a.cache == nil || fctx != nil {
		return a.engine.Analyze(code, opts, fctx)
	}
	res, _ := a.cache.GetOrCompute(code, opts, func() analysis.CodeAnalysis {
		return a.engine.Analyze(code, opts, nil)
	})
	return res
}

// FailureAnalysis delegates to the engine.
func (a *Analyzer) FailureAnalysis(code string, lang analysis.Language, cause error) analysis.CodeAnalysis {
	return a.engine.FailureAnalysis(code, lang, cause)
}

// Engine returns the wrapped engine.
func (a *Analyzer) Engine() *analysis.Engine {
	return a.engine
}
