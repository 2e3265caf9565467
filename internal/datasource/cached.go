package datasource

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/probelab/crucible/internal/logging"
)

// CacheConfig holds cache configuration.
type CacheConfig struct {
	// MaxEntries bounds the number of cached query results (default 512)
	MaxEntries int

	// TTL is the entry lifetime (default 2 minutes). Strategies repeat
	// identical queries within one investigation; results are stable on
	// that horizon.
	TTL time.Duration
}

// DefaultCacheConfig returns the default cache settings.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries: 512,
		TTL:        2 * time.Minute,
	}
}

type cacheEntry struct {
	points    []Point
	value     float64
	entities  []string
	expiresAt time.Time
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Expired uint64
}

// CachedSource wraps a DataSource with an LRU+TTL cache keyed by query
// shape. Failures are not cached.
type CachedSource struct {
	underlying DataSource
	lru        *lru.Cache[string, *cacheEntry]
	ttl        time.Duration
	logger     *logging.Logger

	hits    uint64
	misses  uint64
	expired uint64
}

// NewCachedSource creates a caching wrapper around src.
func NewCachedSource(src DataSource, cfg CacheConfig, logger *logging.Logger) (*CachedSource, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultCacheConfig().MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheConfig().TTL
	}

	cache, err := lru.New[string, *cacheEntry](cfg.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}

	return &CachedSource{
		underlying: src,
		lru:        cache,
		ttl:        cfg.TTL,
		logger:     logger,
	}, nil
}

// QueryRange implements DataSource.QueryRange with caching.
func (c *CachedSource) QueryRange(ctx context.Context, metric string, start, end time.Time) ([]Point, error) {
	key := fmt.Sprintf("range|%s|%d|%d", metric, start.Unix(), end.Unix())
	if entry, ok := c.get(key); ok {
		return entry.points, nil
	}

	points, err := c.underlying.QueryRange(ctx, metric, start, end)
	if err != nil {
		return nil, err
	}
	c.put(key, &cacheEntry{points: points})
	return points, nil
}

// QueryInstant implements DataSource.QueryInstant with caching.
func (c *CachedSource) QueryInstant(ctx context.Context, metric string) (float64, error) {
	key := "instant|" + metric
	if entry, ok := c.get(key); ok {
		return entry.value, nil
	}

	value, err := c.underlying.QueryInstant(ctx, metric)
	if err != nil {
		return 0, err
	}
	c.put(key, &cacheEntry{value: value})
	return value, nil
}

// ActiveEntities implements DataSource.ActiveEntities with caching.
func (c *CachedSource) ActiveEntities(ctx context.Context, start, end time.Time) ([]string, error) {
	key := fmt.Sprintf("entities|%d|%d", start.Unix(), end.Unix())
	if entry, ok := c.get(key); ok {
		return entry.entities, nil
	}

	entities, err := c.underlying.ActiveEntities(ctx, start, end)
	if err != nil {
		return nil, err
	}
	c.put(key, &cacheEntry{entities: entities})
	return entities, nil
}

// Stats returns a snapshot of cache counters.
func (c *CachedSource) Stats() CacheStats {
	return CacheStats{
		Hits:    atomic.LoadUint64(&c.hits),
		Misses:  atomic.LoadUint64(&c.misses),
		Expired: atomic.LoadUint64(&c.expired),
	}
}

func (c *CachedSource) get(key string) (*cacheEntry, bool) {
	entry, ok := c.lru.Get(key)
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.lru.Remove(key)
		atomic.AddUint64(&c.expired, 1)
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}
	atomic.AddUint64(&c.hits, 1)
	return entry, true
}

func (c *CachedSource) put(key string, entry *cacheEntry) {
	entry.expiresAt = time.Now().Add(c.ttl)
	c.lru.Add(key, entry)
}
