package usda

import (
	"context"
	"log"
	"time"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/infrastructure/cache"
)

// CachedSource memoizes successful barcode lookups. Misses and failures are
// not cached so a later request can still find a newly published record.
type CachedSource struct {
	source domain.DatabaseSource
	cache  *cache.MemoryCache[domain.Source]
	ttl    time.Duration
}

// NewCachedSource wraps source with a TTL cache keyed by normalized GTIN
func NewCachedSource(source domain.DatabaseSource, store *cache.MemoryCache[domain.Source], ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, cache: store, ttl: ttl}
}

// LookupByBarcode implements domain.DatabaseSource
func (c *CachedSource) LookupByBarcode(ctx context.Context, barcode string) (*domain.Source, error) {
	key := "gtin:" + NormalizeGTIN(barcode)
	if src, ok := c.cache.Get(key); ok {
		log.Printf("[CACHE] HIT - %s", key)
		return &src, nil
	}
	log.Printf("[CACHE] MISS - %s", key)

	src, err := c.source.LookupByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, *src, c.ttl)
	return src, nil
}
