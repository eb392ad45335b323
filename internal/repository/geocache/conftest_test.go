package geocache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/db"
	"github.com/kailas-cloud/rentsearch/internal/domain"
)

type mockGeocoder struct {
	result []domain.Coordinates
	err    error
	calls  int
	names  []string
}

func (m *mockGeocoder) Geocode(_ context.Context, name, _ string) ([]domain.Coordinates, error) {
	m.calls++
	m.names = append(m.names, name)
	return m.result, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestResolver(t *testing.T, g *mockGeocoder) (*Resolver, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	return New(g, ms, "vn", 0, nil, zap.NewNop()), ms
}
