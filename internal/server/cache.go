package server

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"datamap/internal/metrics"
)

// RenderCache keeps rendered documents keyed by map state and format. It
// is an in-process LRU with TTL, optionally backed by Redis so replicas
// that applied the same updates share renders.
type RenderCache struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element

	rc     *redis.Client
	prefix string

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	k   string
	v   []byte
	exp time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	Redis      bool    `json:"redis"`
}

// NewRenderCache creates a cache holding up to capacity renders. rc may be
// nil.
func NewRenderCache(capacity int, ttl time.Duration, rc *redis.Client, prefix string) *RenderCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &RenderCache{
		cap:    capacity,
		ttl:    ttl,
		lst:    list.New(),
		dict:   make(map[string]*list.Element),
		rc:     rc,
		prefix: prefix,
	}
}

// Get returns a cached render and the level that served it ("memory" or
// "redis").
func (c *RenderCache) Get(ctx context.Context, k string) ([]byte, string, bool) {
	if v, ok := c.getLocal(k); ok {
		c.hits.Add(1)
		metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
		return v, "memory", true
	}
	if c.rc != nil {
		b, err := c.rc.Get(ctx, c.prefix+k).Bytes()
		switch {
		case err == nil:
			c.setLocal(k, b)
			c.hits.Add(1)
			metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
			return b, "redis", true
		case !errors.Is(err, redis.Nil):
			zap.L().Warn("render cache: redis get failed", zap.String("key", k), zap.Error(err))
		}
	}
	c.misses.Add(1)
	metrics.CacheMissesTotal.Inc()
	return nil, "", false
}

// Set stores a render in memory and, when configured, in Redis.
func (c *RenderCache) Set(ctx context.Context, k string, v []byte) {
	c.setLocal(k, v)
	if c.rc == nil {
		return
	}
	if err := c.rc.Set(ctx, c.prefix+k, v, c.ttl).Err(); err != nil {
		zap.L().Warn("render cache: redis set failed", zap.String("key", k), zap.Error(err))
	}
}

func (c *RenderCache) getLocal(k string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(cacheEntry)
		if time.Now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	return nil, false
}

func (c *RenderCache) setLocal(k string, v []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		e.Value = cacheEntry{k: k, v: v, exp: time.Now().Add(c.ttl)}
		c.lst.MoveToFront(e)
		return
	}
	e := c.lst.PushFront(cacheEntry{k: k, v: v, exp: time.Now().Add(c.ttl)})
	c.dict[k] = e
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		it := back.Value.(cacheEntry)
		delete(c.dict, it.k)
		c.lst.Remove(back)
	}
}

// Stats returns cache performance statistics.
func (c *RenderCache) Stats() CacheStats {
	c.mu.Lock()
	entries := c.lst.Len()
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return CacheStats{
		Entries:    entries,
		MaxEntries: c.cap,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
		Redis:      c.rc != nil,
	}
}

// OpenRedis returns a client for addr, or nil when addr is empty.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}
