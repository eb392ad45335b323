package search

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
)

type mockPlanner struct {
	generatePlanFn func(ctx context.Context, query string) plan.Plan
	calls          int
}

func (m *mockPlanner) GeneratePlan(ctx context.Context, query string) plan.Plan {
	m.calls++
	if m.generatePlanFn != nil {
		return m.generatePlanFn(ctx, query)
	}
	return plan.Fallback()
}

type increment struct{ userID, criterion string }

type mockCounter struct {
	mu    sync.Mutex
	err   error
	calls []increment
}

func (m *mockCounter) IncrementCriterion(_ context.Context, userID, criterion string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, increment{userID, criterion})
	return m.err
}

type mockRewriter struct {
	rewriteFn func(ctx context.Context, p plan.Plan) plan.Plan
}

func (m *mockRewriter) Rewrite(ctx context.Context, p plan.Plan) plan.Plan {
	if m.rewriteFn != nil {
		return m.rewriteFn(ctx, p)
	}
	return p
}

type mockListings struct {
	executeFn func(ctx context.Context, p plan.Plan) ([]domain.Listing, error)
	lastPlan  plan.Plan
}

func (m *mockListings) Execute(ctx context.Context, p plan.Plan) ([]domain.Listing, error) {
	m.lastPlan = p
	if m.executeFn != nil {
		return m.executeFn(ctx, p)
	}
	return nil, nil
}

type mockRanker struct {
	rankFn   func(ctx context.Context, userID string, listings []domain.Listing) []domain.RankedListing
	calls    int
	lastUser string
}

func (m *mockRanker) Rank(ctx context.Context, userID string, listings []domain.Listing) []domain.RankedListing {
	m.calls++
	m.lastUser = userID
	if m.rankFn != nil {
		return m.rankFn(ctx, userID, listings)
	}
	out := make([]domain.RankedListing, len(listings))
	for i, l := range listings {
		out[i] = domain.RankedListing{Listing: l, Score: 100}
	}
	return out
}

type mockCache struct {
	entries map[string][]domain.RankedListing
	getErr  error
	setErr  error
	sets    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string][]domain.RankedListing{}}
}

func (m *mockCache) Get(_ context.Context, query string) ([]domain.RankedListing, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	r, ok := m.entries[query]
	return r, ok, nil
}

func (m *mockCache) Set(_ context.Context, query string, results []domain.RankedListing) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[query] = results
	return nil
}

type fixture struct {
	planner  *mockPlanner
	prefs    *mockCounter
	rewriter *mockRewriter
	listings *mockListings
	ranker   *mockRanker
	cache    *mockCache
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		planner:  &mockPlanner{},
		prefs:    &mockCounter{},
		rewriter: &mockRewriter{},
		listings: &mockListings{},
		ranker:   &mockRanker{},
		cache:    newMockCache(),
	}
	f.svc = New(Deps{
		Planner:  f.planner,
		Prefs:    f.prefs,
		Rewriter: f.rewriter,
		Listings: f.listings,
		Ranker:   f.ranker,
		Cache:    f.cache,
		Logger:   zap.NewNop(),
	}, "")
	return f
}
