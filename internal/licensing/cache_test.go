package licensing

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridseal/internal/signing"
	"gridseal/pkg/contracts/domain"
)

func validVerdict() domain.VerificationReport {
	return domain.VerificationReport{Valid: true}
}

// =============================================================================
// Verification Cache
// =============================================================================

func TestCacheHitAndMiss(t *testing.T) {
	cache := NewVerificationCache(time.Minute, 10)
	defer cache.Stop()

	_, ok := cache.Get("absent")
	assert.False(t, ok)

	cache.Set("verdict-1", validVerdict())
	got, ok := cache.Get("verdict-1")
	require.True(t, ok)
	assert.True(t, got.Valid)

	stats := cache.GetStats()
	assert.Equal(t, int64(1), stats["hit_count"])
	assert.Equal(t, int64(1), stats["miss_count"])
	assert.Equal(t, 0.5, stats["hit_ratio"])
	assert.Equal(t, 1, stats["entries"])
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := NewVerificationCache(15*time.Millisecond, 10)
	defer cache.Stop()

	cache.Set("verdict-1", validVerdict())
	_, ok := cache.Get("verdict-1")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	_, ok = cache.Get("verdict-1")
	assert.False(t, ok)
}

func TestCacheEvictsOldest(t *testing.T) {
	cache := NewVerificationCache(time.Minute, 2)
	defer cache.Stop()

	cache.Set("first", validVerdict())
	time.Sleep(2 * time.Millisecond)
	cache.Set("second", validVerdict())
	time.Sleep(2 * time.Millisecond)
	cache.Set("third", validVerdict())

	_, ok := cache.Get("first")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = cache.Get("second")
	assert.True(t, ok)
	_, ok = cache.Get("third")
	assert.True(t, ok)
}

func TestCacheDisabled(t *testing.T) {
	cache := NewVerificationCache(time.Minute, 0)
	defer cache.Stop()

	cache.Set("verdict-1", validVerdict())
	_, ok := cache.Get("verdict-1")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.GetStats()["entries"])
}

func TestCacheInvalidate(t *testing.T) {
	cache := NewVerificationCache(time.Minute, 10)
	defer cache.Stop()

	cache.Set("verdict-1", validVerdict())
	cache.Invalidate("verdict-1")

	_, ok := cache.Get("verdict-1")
	assert.False(t, ok)
}

func TestCacheStopIsIdempotent(t *testing.T) {
	cache := NewVerificationCache(time.Minute, 10)
	cache.Stop()
	cache.Stop()
}

func TestVerificationCacheKey(t *testing.T) {
	digest := sha256.Sum256([]byte("canonical bytes"))
	other := sha256.Sum256([]byte("different bytes"))

	base := verificationCacheKey(digest, "sig", "fp", signing.SchemePSS)
	assert.Equal(t, base, verificationCacheKey(digest, "sig", "fp", signing.SchemePSS))

	variants := []string{
		verificationCacheKey(other, "sig", "fp", signing.SchemePSS),
		verificationCacheKey(digest, "other-sig", "fp", signing.SchemePSS),
		verificationCacheKey(digest, "sig", "other-fp", signing.SchemePSS),
		verificationCacheKey(digest, "sig", "fp", signing.SchemePKCS1v15),
	}
	for i, variant := range variants {
		assert.NotEqual(t, base, variant, "variant %d", i)
	}
}
