package signals

import (
	"context"
	"sync"

	"github.com/kailas-cloud/rentsearch/internal/domain"
)

// fakeStore is an in-memory SignalStore.
type fakeStore struct {
	mu         sync.Mutex
	history    map[string][]string
	popularity map[domain.Pool]map[string]int64
	prefs      map[string]map[string]int64
	mutations  int

	pushErr       error
	popularityErr error
	amenitiesErr  error
	readErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		history:    map[string][]string{},
		popularity: map[domain.Pool]map[string]int64{},
		prefs:      map[string]map[string]int64{},
	}
}

func (f *fakeStore) PushHistory(_ context.Context, userID, entry string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.mutations++
	f.history[userID] = append([]string{entry}, f.history[userID]...)
	return nil
}

func (f *fakeStore) IncrementPopularity(_ context.Context, pool domain.Pool, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.popularityErr != nil {
		return f.popularityErr
	}
	f.mutations++
	if f.popularity[pool] == nil {
		f.popularity[pool] = map[string]int64{}
	}
	f.popularity[pool][id]++
	return nil
}

func (f *fakeStore) IncrementAmenities(_ context.Context, userID string, amenities []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.amenitiesErr != nil {
		return f.amenitiesErr
	}
	f.mutations++
	if f.prefs[userID] == nil {
		f.prefs[userID] = map[string]int64{}
	}
	for _, a := range amenities {
		f.prefs[userID][a]++
	}
	return nil
}

func (f *fakeStore) History(_ context.Context, userID string, limit int) ([]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	h := f.history[userID]
	if limit > 0 && limit < len(h) {
		h = h[:limit]
	}
	return h, nil
}

func (f *fakeStore) Preferences(_ context.Context, userID string) (map[string]int64, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.prefs[userID], nil
}

func (f *fakeStore) Popular(_ context.Context, pool domain.Pool, limit int) ([]domain.Counter, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []domain.Counter
	for k, v := range f.popularity[pool] {
		out = append(out, domain.Counter{Key: k, Count: v})
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type mockIndex struct {
	lookupByRoomFn func(ctx context.Context, roomID string) (domain.ListingSignals, error)
	lookupByPostFn func(ctx context.Context, postID string) (domain.ListingSignals, error)
	roomCalls      []string
	postCalls      []string
}

func (m *mockIndex) LookupByRoom(ctx context.Context, roomID string) (domain.ListingSignals, error) {
	m.roomCalls = append(m.roomCalls, roomID)
	if m.lookupByRoomFn != nil {
		return m.lookupByRoomFn(ctx, roomID)
	}
	return domain.ListingSignals{}, domain.ErrListingNotFound
}

func (m *mockIndex) LookupByPost(ctx context.Context, postID string) (domain.ListingSignals, error) {
	m.postCalls = append(m.postCalls, postID)
	if m.lookupByPostFn != nil {
		return m.lookupByPostFn(ctx, postID)
	}
	return domain.ListingSignals{}, domain.ErrListingNotFound
}
