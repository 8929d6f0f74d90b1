package recurrence

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// CacheEntry represents a cached occurrence list
type CacheEntry struct {
	Result     []time.Time
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// Cache memoises occurrence calculations keyed by rule, anchor and window
type Cache struct {
	entries         map[string]*CacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// CacheConfig holds configuration for the occurrence cache
type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl"`              // How long entries stay valid
	MaxEntries      int           `yaml:"max_entries"`      // Maximum number of entries before eviction
	CleanupInterval time.Duration `yaml:"cleanup_interval"` // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for occurrence caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewCache creates a cache and starts its cleanup goroutine. Call Close to stop it.
func NewCache(config CacheConfig) *Cache {
	cache := &Cache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	if cache.cleanupInterval > 0 {
		go cache.cleanupLoop()
	}

	return cache
}

// cacheKey hashes every input that influences the occurrence list
func cacheKey(operation string, rule Rule, anchor, windowStart, windowEnd time.Time) string {
	hasher := sha256.New()

	hasher.Write([]byte(operation))
	hasher.Write([]byte(rule.Frequency()))
	hasher.Write([]byte(strconv.Itoa(rule.Interval())))
	if end, ok := rule.EndDate().Get(); ok {
		hasher.Write([]byte("end:" + end.Format(time.RFC3339Nano)))
	}
	if n, ok := rule.MaxOccurrences().Get(); ok {
		hasher.Write([]byte("max:" + strconv.Itoa(n)))
	}

	hasher.Write([]byte(anchor.Format(time.RFC3339Nano)))
	hasher.Write([]byte(windowStart.Format(time.RFC3339Nano)))
	hasher.Write([]byte(windowEnd.Format(time.RFC3339Nano)))

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get retrieves a cached result if it exists and hasn't expired
func (c *Cache) Get(operation string, rule Rule, anchor, windowStart, windowEnd time.Time) ([]time.Time, bool) {
	key := cacheKey(operation, rule, anchor, windowStart, windowEnd)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	now := time.Now()
	if now.After(entry.ExpiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	entry.AccessedAt = now
	return append([]time.Time(nil), entry.Result...), true
}

// Set stores a result in the cache
func (c *Cache) Set(operation string, rule Rule, anchor, windowStart, windowEnd time.Time, result []time.Time) {
	key := cacheKey(operation, rule, anchor, windowStart, windowEnd)
	now := time.Now()

	entry := &CacheEntry{
		Result:     append([]time.Time(nil), result...),
		ExpiresAt:  now.Add(c.ttl),
		AccessedAt: now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry

	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries, then the least recently accessed ones
// until the cache is within its limit. Caller holds the write lock.
func (c *Cache) cleanup() {
	now := time.Now()

	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}

	keyAccessList := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		keyAccessList = append(keyAccessList, keyAccess{key: key, accessedAt: entry.AccessedAt})
	}
	sort.Slice(keyAccessList, func(i, j int) bool {
		return keyAccessList[i].accessedAt.Before(keyAccessList[j].accessedAt)
	})

	entriesToRemove := len(c.entries) - c.maxEntries
	for i := 0; i < entriesToRemove && i < len(keyAccessList); i++ {
		delete(c.entries, keyAccessList[i].key)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. Safe to call twice.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entryCount := len(c.entries)
	expiredCount := 0
	now := time.Now()

	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expiredCount++
		}
	}

	return CacheStats{
		TotalEntries:   entryCount,
		ExpiredEntries: expiredCount,
		ActiveEntries:  entryCount - expiredCount,
	}
}

// CacheStats provides information about cache occupancy
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
