package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/postsense/postsense/app/cache"
)

// DefaultCacheSize is the default number of embeddings kept in memory.
// At 1536 dimensions * 4 bytes * 1000 entries ≈ 6MB.
const DefaultCacheSize = 1000

// CachedProvider wraps a Provider with a bounded LRU memoization layer and
// an optional shared Redis layer. Repeated embedding requests for the same
// normalized text never reach the upstream provider twice.
type CachedProvider struct {
	inner  Provider
	local  *lru.Cache[string, []float32]
	shared *cache.Cache
}

var _ Provider = (*CachedProvider)(nil)

// NewCachedProvider creates a cached provider. shared may be nil to run
// with the in-process cache only.
func NewCachedProvider(inner Provider, cacheSize int, shared *cache.Cache) *CachedProvider {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	local, _ := lru.New[string, []float32](cacheSize)

	return &CachedProvider{
		inner:  inner,
		local:  local,
		shared: shared,
	}
}

// cacheKey derives a fixed-length key from normalized text and the model
// name, so a model change never serves stale vectors.
func (c *CachedProvider) cacheKey(text string) string {
	combined := NormalizeText(text) + "\x00" + c.inner.ModelName()
	hash := sha256.Sum256([]byte(combined))
	return "emb:" + hex.EncodeToString(hash[:])
}

// Embed returns a cached embedding if available, otherwise computes and
// caches it. Only non-empty vectors are cached.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if vec, ok := c.local.Get(key); ok {
		return vec, nil
	}

	if vec, ok, err := c.shared.GetVector(ctx, key); ok {
		c.local.Add(key, vec)
		return vec, nil
	} else if err != nil {
		slog.Warn("Shared embedding cache read failed", "error", err)
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.local.Add(key, vec)
	if err := c.shared.SetVector(ctx, key, vec); err != nil {
		slog.Warn("Shared embedding cache write failed", "error", err)
	}

	return vec, nil
}

// Dimensions returns the embedding dimension (passthrough to inner)
func (c *CachedProvider) Dimensions() int {
	return c.inner.Dimensions()
}

// ModelName returns the model identifier (passthrough to inner)
func (c *CachedProvider) ModelName() string {
	return c.inner.ModelName()
}

// Len returns the number of locally cached embeddings
func (c *CachedProvider) Len() int {
	return c.local.Len()
}
