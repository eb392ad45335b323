// Package resultcache stores ranked search results keyed by the normalized query text.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/rentsearch/internal/db"
	"github.com/kailas-cloud/rentsearch/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "search:"

// DefaultTTL is the lifetime of a cached result list.
const DefaultTTL = time.Hour

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Cache reads and writes ranked result lists.
type Cache struct {
	store store
	ttl   time.Duration
}

// New creates a result cache.
func New(s store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: s, ttl: ttl}
}

// Key returns the cache key of a normalized query.
func Key(query string) string {
	h := sha256.Sum256([]byte(query))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

// Get returns the cached results of a query. ok is false on a miss.
// An entry that no longer decodes is evicted so the next search repopulates it.
func (c *Cache) Get(ctx context.Context, query string) ([]domain.RankedListing, bool, error) {
	key := Key(query)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached results: %w", err)
	}

	var out []domain.RankedListing
	if err := json.Unmarshal(data, &out); err != nil {
		if delErr := c.store.Del(ctx, key); delErr != nil {
			return nil, false, fmt.Errorf("decode cached results: %w (evict: %w)", err, delErr)
		}
		return nil, false, fmt.Errorf("decode cached results: %w", err)
	}
	if out == nil {
		out = []domain.RankedListing{}
	}
	return out, true, nil
}

// Set caches the results of a query.
func (c *Cache) Set(ctx context.Context, query string, results []domain.RankedListing) error {
	if results == nil {
		results = []domain.RankedListing{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := c.store.SetWithTTL(ctx, Key(query), data, c.ttl); err != nil {
		return fmt.Errorf("cache results: %w", err)
	}
	return nil
}
