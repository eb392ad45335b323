package resultcache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/rentsearch/internal/db/redis"
	"github.com/kailas-cloud/rentsearch/internal/domain"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := redis.NewStore(redis.Config{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return New(s, 0), mr
}

func TestKey(t *testing.T) {
	k := Key("phòng trọ quận 1")
	assert.True(t, strings.HasPrefix(k, "rentsearch:search:"))
	assert.Len(t, strings.TrimPrefix(k, "rentsearch:search:"), 64)
	assert.Equal(t, k, Key("phòng trọ quận 1"))
	assert.NotEqual(t, k, Key("phòng trọ quận 2"))
}

func TestRoundTrip(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	price := 3_000_000.0
	dist := 1500.0
	in := []domain.RankedListing{
		{Listing: domain.Listing{ID: "a", Price: &price, Distance: &dist, IsAvailable: true, IsActive: true}, Score: 120},
		{Listing: domain.Listing{ID: "b"}, Score: 100},
	}
	require.NoError(t, c.Set(ctx, "q", in))
	assert.Equal(t, DefaultTTL, mr.TTL(Key("q")))

	out, ok, err := c.Get(ctx, "q")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestGet_Miss(t *testing.T) {
	c, _ := setupTestCache(t)

	out, ok, err := c.Get(context.Background(), "nothing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestEmptyResultsAreCached(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "q", nil))
	out, ok, err := c.Get(ctx, "q")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, out)
}

func TestGet_Corrupt(t *testing.T) {
	c, mr := setupTestCache(t)
	require.NoError(t, mr.Set(Key("q"), "{not json"))

	_, ok, err := c.Get(context.Background(), "q")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(Key("q")), "corrupt entry should be evicted")

	_, ok, err = c.Get(context.Background(), "q")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCustomTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := redis.NewStore(redis.Config{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	c := New(s, 5*time.Minute)
	require.NoError(t, c.Set(context.Background(), "q", nil))
	assert.Equal(t, 5*time.Minute, mr.TTL(Key("q")))
}
