package search

import (
	"context"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
)

// Planner turns a query into a plan. It never fails.
type Planner interface {
	GeneratePlan(ctx context.Context, query string) plan.Plan
}

// CriterionCounter records which criteria a user searches by.
type CriterionCounter interface {
	IncrementCriterion(ctx context.Context, userID, criterion string) error
}

// Rewriter resolves location placeholders.
type Rewriter interface {
	Rewrite(ctx context.Context, p plan.Plan) plan.Plan
}

// ListingStore executes plans against the listing collection.
type ListingStore interface {
	Execute(ctx context.Context, p plan.Plan) ([]domain.Listing, error)
}

// Ranker scores and orders listings for a user.
type Ranker interface {
	Rank(ctx context.Context, userID string, listings []domain.Listing) []domain.RankedListing
}

// ResultCache caches ranked results by normalized query.
type ResultCache interface {
	Get(ctx context.Context, query string) ([]domain.RankedListing, bool, error)
	Set(ctx context.Context, query string, results []domain.RankedListing) error
}
