package provider

import (
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/parlay-edge/internal/metrics"
)

// CacheKey identifies one provider response.
type CacheKey struct {
	Endpoint string
	Date     string
	Books    []string
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return k.Endpoint + ":" + k.Date + ":" + strings.Join(k.Books, ",")
}

// ResponseCache keeps raw provider payloads for a short TTL so bursts of API
// requests for the same slate hit the provider once.
type ResponseCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewResponseCache creates a new response cache
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Get retrieves a cached payload
func (rc *ResponseCache) Get(key CacheKey) ([]byte, bool) {
	value, found := rc.cache.Get(key.String())
	payload, ok := value.([]byte)
	hit := found && ok

	rc.mu.Lock()
	if hit {
		rc.hitCount++
	} else {
		rc.missCount++
	}
	rc.mu.Unlock()

	metrics.RecordCacheLookup(hit)
	if !hit {
		return nil, false
	}
	return payload, true
}

// Set stores a payload in cache
func (rc *ResponseCache) Set(key CacheKey, payload []byte) {
	rc.cache.Set(key.String(), payload, rc.ttl)
}

// Flush removes every cached payload.
func (rc *ResponseCache) Flush() {
	rc.cache.Flush()
}

// Stats returns cache statistics
func (rc *ResponseCache) Stats() (hits, misses uint64, hitRate float64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	hits = rc.hitCount
	misses = rc.missCount
	total := hits + misses
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return hits, misses, hitRate
}
