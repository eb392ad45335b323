package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/rentsearch/internal/db"
)

// hincrByMultiScript increments several fields of one hash and refreshes its TTL atomically.
// KEYS[1] = hash, ARGV[1] = ttl seconds, ARGV[2] = delta, ARGV[3..] = fields.
var hincrByMultiScript = rueidis.NewLuaScript(`
local ttl = tonumber(ARGV[1])
local delta = tonumber(ARGV[2])
for i = 3, #ARGV do
	redis.call('HINCRBY', KEYS[1], ARGV[i], delta)
end
redis.call('EXPIRE', KEYS[1], ttl)
return #ARGV - 2
`)

// HIncrBy atomically increments a hash field and refreshes the key TTL.
// Returns the field value after the increment.
func (s *Store) HIncrBy(
	ctx context.Context, key, field string, val int64, ttl time.Duration,
) (int64, error) {
	cmds := rueidis.Commands{
		s.b().Hincrby().Key(key).Field(field).Increment(val).Build(),
		s.b().Expire().Key(key).Seconds(ttlSeconds(ttl)).Build(),
	}

	results := s.client.DoMulti(ctx, cmds...)

	n, err := results[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpHIncrBy, Err: fmt.Errorf("key %s field %s: %w", key, field, err)}
	}
	if err := results[1].Error(); err != nil {
		return n, &db.Error{Op: db.OpExpire, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return n, nil
}

// HIncrByMulti increments every field by val in a single atomic script call
// and refreshes the key TTL. Empty fields is a no-op.
func (s *Store) HIncrByMulti(
	ctx context.Context, key string, fields []string, val int64, ttl time.Duration,
) error {
	if len(fields) == 0 {
		return nil
	}

	args := make([]string, 0, len(fields)+2)
	args = append(args, strconv.FormatInt(ttlSeconds(ttl), 10), strconv.FormatInt(val, 10))
	args = append(args, fields...)

	if err := hincrByMultiScript.Exec(ctx, s.client, []string{key}, args).Error(); err != nil {
		return &db.Error{Op: db.OpEval, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}
