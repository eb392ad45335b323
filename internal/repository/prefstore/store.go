// Package prefstore keeps per-user preference counters, interaction history and
// per-pool popularity counters in the cache store.
package prefstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/db"
	"github.com/kailas-cloud/rentsearch/internal/domain"
)

var (
	prefsKeyPrefix      = domain.KeyPrefix + "prefs:"
	historyKeyPrefix    = domain.KeyPrefix + "history:"
	popularityKeyPrefix = domain.KeyPrefix + "popularity:"
)

// DefaultHistoryMaxLen bounds the interaction history when no limit is configured.
const DefaultHistoryMaxLen = 20

// store is the consumer interface for preference storage (ISP).
type store interface {
	HIncrBy(ctx context.Context, key, field string, val int64, ttl time.Duration) (int64, error)
	HIncrByMulti(ctx context.Context, key string, fields []string, val int64, ttl time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	PushCapped(ctx context.Context, key, value string, maxLen int, ttl time.Duration) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Repo reads and writes preference signals.
type Repo struct {
	store         store
	ttl           time.Duration
	historyMaxLen int
	logger        *zap.Logger
}

// New creates a preference repository. ttl is refreshed on every write.
func New(s store, ttl time.Duration, historyMaxLen int, logger *zap.Logger) *Repo {
	if historyMaxLen <= 0 {
		historyMaxLen = DefaultHistoryMaxLen
	}
	return &Repo{store: s, ttl: ttl, historyMaxLen: historyMaxLen, logger: logger}
}

func prefsKey(userID string) string { return prefsKeyPrefix + userID }
func historyKey(userID string) string { return historyKeyPrefix + userID }
func popularityKey(pool domain.Pool) string { return popularityKeyPrefix + string(pool) }

// IncrementCriterion adds one to a user's criterion counter.
func (r *Repo) IncrementCriterion(ctx context.Context, userID, criterion string) error {
	if _, err := r.store.HIncrBy(ctx, prefsKey(userID), criterion, 1, r.ttl); err != nil {
		return fmt.Errorf("increment criterion %s: %w", criterion, err)
	}
	return nil
}

// IncrementAmenities adds one to each amenity counter of a user in a single atomic batch.
func (r *Repo) IncrementAmenities(ctx context.Context, userID string, amenities []string) error {
	if len(amenities) == 0 {
		return nil
	}
	if err := r.store.HIncrByMulti(ctx, prefsKey(userID), amenities, 1, r.ttl); err != nil {
		return fmt.Errorf("increment amenities: %w", err)
	}
	return nil
}

// Preferences returns all criterion counters of a user. A missing user has no counters.
func (r *Repo) Preferences(ctx context.Context, userID string) (map[string]int64, error) {
	raw, err := r.store.HGetAll(ctx, prefsKey(userID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return map[string]int64{}, nil
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return r.parseCounters(prefsKey(userID), raw), nil
}

// PushHistory records an interaction at the head of the user's history.
func (r *Repo) PushHistory(ctx context.Context, userID, entry string) error {
	if err := r.store.PushCapped(ctx, historyKey(userID), entry, r.historyMaxLen, r.ttl); err != nil {
		return fmt.Errorf("push history: %w", err)
	}
	return nil
}

// History returns up to limit most recent interactions, newest first.
func (r *Repo) History(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 || limit > r.historyMaxLen {
		limit = r.historyMaxLen
	}
	items, err := r.store.LRange(ctx, historyKey(userID), 0, int64(limit-1))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("get history: %w", err)
	}
	return items, nil
}

// IncrementPopularity adds one to a listing's counter in its pool.
func (r *Repo) IncrementPopularity(ctx context.Context, pool domain.Pool, listingID string) error {
	if _, err := r.store.HIncrBy(ctx, popularityKey(pool), listingID, 1, r.ttl); err != nil {
		return fmt.Errorf("increment popularity: %w", err)
	}
	return nil
}

// Popular returns the top counters of a pool, highest count first, ties by id.
func (r *Repo) Popular(ctx context.Context, pool domain.Pool, limit int) ([]domain.Counter, error) {
	raw, err := r.store.HGetAll(ctx, popularityKey(pool))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return []domain.Counter{}, nil
		}
		return nil, fmt.Errorf("get popularity: %w", err)
	}
	return TopCounters(r.parseCounters(popularityKey(pool), raw), limit), nil
}

func (r *Repo) parseCounters(key string, raw map[string]string) map[string]int64 {
	out := make(map[string]int64, len(raw))
	for field, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.logger.Warn("Skipping non-numeric counter",
				zap.String("key", key), zap.String("field", field), zap.String("value", v))
			continue
		}
		out[field] = n
	}
	return out
}

// TopCounters sorts counters by count descending then key ascending and keeps limit entries.
// A non-positive limit keeps all.
func TopCounters(counts map[string]int64, limit int) []domain.Counter {
	out := make([]domain.Counter, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.Counter{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
