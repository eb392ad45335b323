// Package geocache resolves place names to coordinates with a cache-aside layer
// in front of a geocoding provider.
package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/db"
	"github.com/kailas-cloud/rentsearch/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "geo:"

// DefaultTTL is how long a resolved place stays cached.
const DefaultTTL = 30 * 24 * time.Hour

// store is the consumer interface for the coordinate cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Geocoder looks up candidate coordinates for a place name, best match first.
type Geocoder interface {
	Geocode(ctx context.Context, name, country string) ([]domain.Coordinates, error)
}

// Resolver maps place names to coordinates.
type Resolver struct {
	geocoder     Geocoder
	store        store
	country      string
	ttl          time.Duration
	lookupsTotal *prometheus.CounterVec
	logger       *zap.Logger
}

// New creates a caching resolver.
// lookupsTotal is a counter vec with label "result" ("hit"/"miss"/"not_found"/"error"), passed explicitly.
func New(
	g Geocoder,
	s store,
	country string,
	ttl time.Duration,
	lookupsTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		geocoder:     g,
		store:        s,
		country:      country,
		ttl:          ttl,
		lookupsTotal: lookupsTotal,
		logger:       logger,
	}
}

// Resolve returns the coordinates of a place. Any failure to find a usable
// point is reported as domain.ErrLocationNotFound.
func (r *Resolver) Resolve(ctx context.Context, place string) (domain.Coordinates, error) {
	name := NormalizeName(place)
	if name == "" {
		return domain.Coordinates{}, fmt.Errorf("empty place name: %w", domain.ErrLocationNotFound)
	}
	key := cacheKeyPrefix + name

	if c, ok := r.getFromCache(ctx, key); ok {
		r.inc("hit")
		return c, nil
	}
	r.inc("miss")

	candidates, err := r.geocoder.Geocode(ctx, name, r.country)
	if err != nil {
		r.inc("error")
		r.logger.Warn("Geocoding failed", zap.String("place", name), zap.Error(err))
		return domain.Coordinates{}, fmt.Errorf("resolve %q: %w", name, domain.ErrLocationNotFound)
	}
	if len(candidates) == 0 || !candidates[0].Valid() {
		r.inc("not_found")
		return domain.Coordinates{}, fmt.Errorf("resolve %q: %w", name, domain.ErrLocationNotFound)
	}

	best := candidates[0]
	r.putToCache(ctx, key, best)
	return best, nil
}

// NormalizeName lowercases, trims and collapses inner whitespace.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (r *Resolver) inc(result string) {
	if r.lookupsTotal != nil {
		r.lookupsTotal.WithLabelValues(result).Inc()
	}
}

func (r *Resolver) getFromCache(ctx context.Context, key string) (domain.Coordinates, bool) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.logger.Warn("Failed to get cached coordinates", zap.String("key", key), zap.Error(err))
		}
		return domain.Coordinates{}, false
	}

	var c domain.Coordinates
	if err := json.Unmarshal(data, &c); err != nil || !c.Valid() {
		r.logger.Warn("Failed to parse cached coordinates", zap.String("key", key), zap.Error(err))
		return domain.Coordinates{}, false
	}
	return c, true
}

func (r *Resolver) putToCache(ctx context.Context, key string, c domain.Coordinates) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := r.store.SetWithTTL(ctx, key, data, r.ttl); err != nil {
		r.logger.Warn("Failed to cache coordinates", zap.String("key", key), zap.Error(err))
	}
}
