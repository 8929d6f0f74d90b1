package recurrence

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCache_BasicOperations(t *testing.T) {
	cache := NewCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 1 * time.Minute,
	})
	defer cache.Close()

	rule := MustRule(Daily{Interval: 1}, WithMaxOccurrences(5))
	anchor := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	windowStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	// Cache miss first
	result, found := cache.Get("test", rule, anchor, windowStart, windowEnd)
	if found {
		t.Error("Expected cache miss, got hit")
	}
	if result != nil {
		t.Error("Expected nil result on cache miss")
	}

	want := []time.Time{windowStart, windowStart.AddDate(0, 0, 1)}
	cache.Set("test", rule, anchor, windowStart, windowEnd, want)

	result, found = cache.Get("test", rule, anchor, windowStart, windowEnd)
	if !found {
		t.Fatal("Expected cache hit, got miss")
	}
	if len(result) != 2 || !result[1].Equal(want[1]) {
		t.Errorf("Expected %v, got %v", want, result)
	}

	// Callers get their own copy
	result[0] = time.Time{}
	again, _ := cache.Get("test", rule, anchor, windowStart, windowEnd)
	if again[0].IsZero() {
		t.Error("Cached slice was mutated through a returned copy")
	}
}

func TestCache_KeyIncludesRuleTermination(t *testing.T) {
	cache := NewCache(CacheConfig{TTL: time.Minute, MaxEntries: 10})
	defer cache.Close()

	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := anchor.AddDate(0, 0, 7)
	capped := MustRule(Daily{Interval: 1}, WithMaxOccurrences(2))
	open := MustRule(Daily{Interval: 1})

	cache.Set("test", capped, anchor, anchor, end, []time.Time{anchor})

	if _, found := cache.Get("test", open, anchor, anchor, end); found {
		t.Error("Rules differing only in maxOccurrences must not share an entry")
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := NewCache(CacheConfig{
		TTL:             100 * time.Millisecond,
		MaxEntries:      100,
		CleanupInterval: 50 * time.Millisecond,
	})
	defer cache.Close()

	rule := MustRule(Weekly{Interval: 1})
	anchor := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	windowEnd := anchor.AddDate(0, 1, 0)

	cache.Set("test", rule, anchor, anchor, windowEnd, []time.Time{anchor})

	if _, found := cache.Get("test", rule, anchor, anchor, windowEnd); !found {
		t.Error("Expected cache hit immediately after set")
	}

	time.Sleep(150 * time.Millisecond)

	if _, found := cache.Get("test", rule, anchor, anchor, windowEnd); found {
		t.Error("Expected cache miss after TTL expiration")
	}
}

func TestCache_MaxEntriesEviction(t *testing.T) {
	cache := NewCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      3,
		CleanupInterval: 1 * time.Minute,
	})
	defer cache.Close()

	rule := MustRule(Daily{Interval: 1})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		start := base.AddDate(0, 0, i)
		cache.Set(fmt.Sprintf("op-%d", i), rule, base, start, start, []time.Time{start})
		time.Sleep(time.Millisecond)
	}

	stats := cache.Stats()
	if stats.TotalEntries > 3 {
		t.Errorf("Expected at most 3 entries, got %d", stats.TotalEntries)
	}

	// Newest entry survives, oldest is evicted
	last := base.AddDate(0, 0, 4)
	if _, found := cache.Get("op-4", rule, base, last, last); !found {
		t.Error("Expected most recent entry to survive eviction")
	}
	if _, found := cache.Get("op-0", rule, base, base, base); found {
		t.Error("Expected oldest entry to be evicted")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      1000,
		CleanupInterval: 1 * time.Minute,
	})
	defer cache.Close()

	rule := MustRule(Daily{Interval: 1})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				start := base.AddDate(0, 0, g*100+i)
				cache.Set("concurrent", rule, base, start, start, []time.Time{start})
				cache.Get("concurrent", rule, base, start, start)
			}
		}(g)
	}
	wg.Wait()

	if got := cache.Stats().TotalEntries; got != 500 {
		t.Errorf("Expected 500 entries, got %d", got)
	}
}

func TestCache_CloseTwice(t *testing.T) {
	cache := NewCache(DefaultCacheConfig)
	cache.Close()
	cache.Close()

	if got := cache.Stats().TotalEntries; got != 0 {
		t.Errorf("Expected empty cache after close, got %d", got)
	}
}
