package licensing

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"gridseal/internal/signing"
	"gridseal/pkg/contracts/domain"
)

const cacheCleanupInterval = time.Minute

// cacheEntry is one memoized signature verdict.
type cacheEntry struct {
	report    domain.VerificationReport
	cachedAt  time.Time
	expiresAt time.Time
	hitCount  int
}

// VerificationCache memoizes signature verification outcomes. Entries are
// keyed by canonical digest + key fingerprint + scheme, so any change to
// the signed surface, the key or the scheme misses. Only the signature axis
// is cached; expiry is evaluated fresh on every verification.
type VerificationCache struct {
	entries   map[string]cacheEntry
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewVerificationCache creates a cache and starts its background cleanup
// goroutine. Stop releases the goroutine. A maxSize of zero or less
// disables storage entirely; every lookup then misses.
func NewVerificationCache(ttl time.Duration, maxSize int) *VerificationCache {
	cache := &VerificationCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// verificationCacheKey builds the cache key for one document checked
// against one key and scheme. The stored signature is part of the key: two
// documents can share a canonical digest yet carry different signature
// fields, and each deserves its own verdict.
func verificationCacheKey(digest [sha256.Size]byte, signature, fingerprint string, scheme signing.Scheme) string {
	h := sha256.New()
	h.Write(digest[:])
	h.Write([]byte{0})
	h.Write([]byte(signature))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(scheme))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached verdict.
func (c *VerificationCache) Get(key string) (domain.VerificationReport, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiresAt) {
		c.missCount++
		return domain.VerificationReport{}, false
	}

	entry.hitCount++
	c.entries[key] = entry
	c.hitCount++

	return entry.report, true
}

// Set stores a verdict.
func (c *VerificationCache) Set(key string, report domain.VerificationReport) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.maxSize <= 0 {
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	c.entries[key] = cacheEntry{
		report:    report,
		cachedAt:  now,
		expiresAt: now.Add(c.ttl),
	}
}

// Invalidate removes one verdict.
func (c *VerificationCache) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

// GetStats returns cache statistics.
func (c *VerificationCache) GetStats() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	totalRequests := c.hitCount + c.missCount
	hitRatio := float64(0)
	if totalRequests > 0 {
		hitRatio = float64(c.hitCount) / float64(totalRequests)
	}

	return map[string]interface{}{
		"entries":     len(c.entries),
		"max_size":    c.maxSize,
		"hit_count":   c.hitCount,
		"miss_count":  c.missCount,
		"hit_ratio":   hitRatio,
		"ttl_seconds": c.ttl.Seconds(),
	}
}

func (c *VerificationCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Stop gracefully stops the cache cleanup goroutine.
func (c *VerificationCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *VerificationCache) cleanup() {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mutex.Unlock()
		case <-c.stopChan:
			return
		}
	}
}
