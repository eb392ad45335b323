package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/rentsearch/internal/db"
)

// PushCapped prepends value to a list, trims it to maxLen and refreshes the TTL
// in a single DoMulti round-trip.
func (s *Store) PushCapped(
	ctx context.Context, key, value string, maxLen int, ttl time.Duration,
) error {
	if maxLen <= 0 {
		return fmt.Errorf("maxLen must be positive")
	}

	cmds := rueidis.Commands{
		s.b().Lpush().Key(key).Element(value).Build(),
		s.b().Ltrim().Key(key).Start(0).Stop(int64(maxLen - 1)).Build(),
		s.b().Expire().Key(key).Seconds(ttlSeconds(ttl)).Build(),
	}
	ops := [...]string{db.OpLPush, db.OpLTrim, db.OpExpire}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: ops[i], Err: fmt.Errorf("key %s: %w", key, err)}
		}
	}
	return nil
}

// LRange returns list elements between start and stop (inclusive, negative from the tail).
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	cmd := s.b().Lrange().Key(key).Start(start).Stop(stop).Build()
	items, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	return items, nil
}
