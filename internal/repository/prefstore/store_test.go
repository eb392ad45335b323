package prefstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/db/redis"
	"github.com/kailas-cloud/rentsearch/internal/domain"
)

const testTTL = 24 * time.Hour

func setupTestRepo(t *testing.T, maxLen int) (*Repo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := redis.NewStore(redis.Config{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return New(s, testTTL, maxLen, zap.NewNop()), mr
}

func TestIncrementCriterion(t *testing.T) {
	repo, mr := setupTestRepo(t, 0)
	ctx := context.Background()

	require.NoError(t, repo.IncrementCriterion(ctx, "7", domain.CriterionPrice))
	require.NoError(t, repo.IncrementCriterion(ctx, "7", domain.CriterionPrice))
	require.NoError(t, repo.IncrementCriterion(ctx, "7", domain.CriterionArea))

	assert.Equal(t, "2", mr.HGet("rentsearch:prefs:7", "price"))
	assert.Equal(t, "1", mr.HGet("rentsearch:prefs:7", "area"))
	assert.Equal(t, testTTL, mr.TTL("rentsearch:prefs:7"))
}

func TestIncrementAmenities_Batch(t *testing.T) {
	repo, mr := setupTestRepo(t, 0)
	ctx := context.Background()

	require.NoError(t, repo.IncrementAmenities(ctx, "1", []string{"wifi", "parking"}))
	require.NoError(t, repo.IncrementAmenities(ctx, "1", []string{"wifi"}))

	assert.Equal(t, "2", mr.HGet("rentsearch:prefs:1", "wifi"))
	assert.Equal(t, "1", mr.HGet("rentsearch:prefs:1", "parking"))
	assert.Equal(t, testTTL, mr.TTL("rentsearch:prefs:1"))
}

func TestIncrementAmenities_EmptyIsNoop(t *testing.T) {
	repo, mr := setupTestRepo(t, 0)

	require.NoError(t, repo.IncrementAmenities(context.Background(), "1", nil))
	assert.False(t, mr.Exists("rentsearch:prefs:1"))
}

func TestPreferences(t *testing.T) {
	repo, mr := setupTestRepo(t, 0)
	ctx := context.Background()

	mr.HSet("rentsearch:prefs:3", "price", "5", "wifi", "2", "broken", "x")

	prefs, err := repo.Preferences(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"price": 5, "wifi": 2}, prefs)
}

func TestPreferences_UnknownUser(t *testing.T) {
	repo, _ := setupTestRepo(t, 0)

	prefs, err := repo.Preferences(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, prefs)
}

func TestPushHistory_TrimsToMaxLen(t *testing.T) {
	repo, mr := setupTestRepo(t, 3)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, repo.PushHistory(ctx, "9", id))
	}

	items, err := mr.List("rentsearch:history:9")
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "4", "3"}, items)
	assert.Equal(t, testTTL, mr.TTL("rentsearch:history:9"))
}

func TestHistory(t *testing.T) {
	repo, _ := setupTestRepo(t, 0)
	ctx := context.Background()

	for _, id := range []string{"10", "20", "30"} {
		require.NoError(t, repo.PushHistory(ctx, "u", id))
	}

	items, err := repo.History(ctx, "u", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"30", "20"}, items)

	items, err = repo.History(ctx, "u", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"30", "20", "10"}, items)
}

func TestHistory_Empty(t *testing.T) {
	repo, _ := setupTestRepo(t, 0)

	items, err := repo.History(context.Background(), "ghost", 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPopularity(t *testing.T) {
	repo, mr := setupTestRepo(t, 0)
	ctx := context.Background()

	require.NoError(t, repo.IncrementPopularity(ctx, domain.PoolRoom, "900"))
	require.NoError(t, repo.IncrementPopularity(ctx, domain.PoolRoom, "900"))
	require.NoError(t, repo.IncrementPopularity(ctx, domain.PoolRoom, "100"))
	require.NoError(t, repo.IncrementPopularity(ctx, domain.PoolRoom, "050"))
	require.NoError(t, repo.IncrementPopularity(ctx, domain.PoolPost, "55"))

	assert.Equal(t, "2", mr.HGet("rentsearch:popularity:room", "900"))
	assert.Equal(t, "1", mr.HGet("rentsearch:popularity:post", "55"))

	top, err := repo.Popular(ctx, domain.PoolRoom, 2)
	require.NoError(t, err)
	assert.Equal(t, []domain.Counter{{Key: "900", Count: 2}, {Key: "050", Count: 1}}, top)
}

func TestTopCounters_NoLimit(t *testing.T) {
	top := TopCounters(map[string]int64{"a": 1, "b": 3, "c": 3}, 0)
	assert.Equal(t, []domain.Counter{{Key: "b", Count: 3}, {Key: "c", Count: 3}, {Key: "a", Count: 1}}, top)
}
