// internal/cache/cache.go
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache stores fetched response bodies by key.
type Cache interface {
	// Get returns the cached body and whether it was found and fresh.
	Get(key string) (string, bool)

	// Set stores body under key for ttl, replacing any previous entry.
	Set(key string, body string, ttl time.Duration)

	// Delete removes key. Missing keys are ignored.
	Delete(key string)

	// Clear removes every entry.
	Clear()

	// Close stops background work.
	Close()
}

// entryOverhead is the bookkeeping cost charged per entry on top of the body.
const entryOverhead = 256

type cacheEntry struct {
	key       string
	body      string
	expiresAt time.Time
}

func (e *cacheEntry) size() int64 {
	return int64(len(e.body)+len(e.key)) + entryOverhead
}

// MemoryCache is an in-memory LRU bounded by total size in bytes, with a
// per-entry TTL.
type MemoryCache struct {
	mu      sync.Mutex
	store   map[string]*list.Element
	lru     *list.List // front is most recently used
	maxSize int64
	size    int64
	hits    uint64
	misses  uint64

	cancel context.CancelFunc
}

// NewMemoryCache creates a cache holding at most maxSizeBytes and starts a
// sweeper that drops expired entries every sweep interval.
func NewMemoryCache(maxSizeBytes int64, sweep time.Duration) *MemoryCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 64 * 1024 * 1024
	}
	if sweep <= 0 {
		sweep = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	mc := &MemoryCache{
		store:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSizeBytes,
		cancel:  cancel,
	}
	go mc.sweep(ctx, sweep)
	return mc
}

// Get implements Cache.
func (mc *MemoryCache) Get(key string) (string, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	el, ok := mc.store[key]
	if !ok {
		mc.misses++
		return "", false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		mc.misses++
		mc.remove(el)
		return "", false
	}

	mc.lru.MoveToFront(el)
	mc.hits++
	log.Debug().Str("key", key).Msg("Cache hit")
	return entry.body, true
}

// Set implements Cache. Entries larger than the whole cache are not stored.
func (mc *MemoryCache) Set(key string, body string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	entry := &cacheEntry{key: key, body: body, expiresAt: time.Now().Add(ttl)}
	if entry.size() > mc.maxSize {
		log.Debug().Str("key", key).Int64("size_bytes", entry.size()).Msg("Entry exceeds cache size, not cached")
		return
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if el, ok := mc.store[key]; ok {
		mc.remove(el)
	}
	for mc.size+entry.size() > mc.maxSize && mc.lru.Len() > 0 {
		evicted := mc.lru.Back()
		log.Debug().Str("key", evicted.Value.(*cacheEntry).key).Msg("Evicted from cache (LRU)")
		mc.remove(evicted)
	}

	mc.store[key] = mc.lru.PushFront(entry)
	mc.size += entry.size()
}

// Delete implements Cache.
func (mc *MemoryCache) Delete(key string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if el, ok := mc.store[key]; ok {
		mc.remove(el)
	}
}

// Clear implements Cache.
func (mc *MemoryCache) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.store = make(map[string]*list.Element)
	mc.lru.Init()
	mc.size = 0
}

// Close implements Cache.
func (mc *MemoryCache) Close() {
	mc.cancel()
}

// Len returns the number of entries.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.lru.Len()
}

// Stats returns entry count, size and hit ratio.
func (mc *MemoryCache) Stats() map[string]interface{} {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	hitRate := 0.0
	if total := mc.hits + mc.misses; total > 0 {
		hitRate = float64(mc.hits) / float64(total) * 100
	}
	return map[string]interface{}{
		"entries":    mc.lru.Len(),
		"size_bytes": mc.size,
		"max_size":   mc.maxSize,
		"hits":       mc.hits,
		"misses":     mc.misses,
		"hit_rate":   hitRate,
	}
}

// remove must be called with mu held.
func (mc *MemoryCache) remove(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	mc.lru.Remove(el)
	delete(mc.store, entry.key)
	mc.size -= entry.size()
}

func (mc *MemoryCache) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			mc.mu.Lock()
			var next *list.Element
			for el := mc.lru.Front(); el != nil; el = next {
				next = el.Next()
				if now.After(el.Value.(*cacheEntry).expiresAt) {
					mc.remove(el)
				}
			}
			mc.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}
