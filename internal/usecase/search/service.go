// Package search runs the query pipeline: plan, rewrite, execute, rank, cache.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
	"github.com/kailas-cloud/rentsearch/internal/logger"
	"github.com/kailas-cloud/rentsearch/internal/metrics"
)

// DefaultUserID is used when a request carries no user id.
const DefaultUserID = "anonymous"

// trackedCriteria are counted once per filter stage that mentions them.
var trackedCriteria = []string{domain.CriterionPrice, domain.CriterionArea}

// Deps bundles the collaborators of the search service.
type Deps struct {
	Planner  Planner
	Prefs    CriterionCounter
	Rewriter Rewriter
	Listings ListingStore
	Ranker   Ranker
	Cache    ResultCache
	Logger   *zap.Logger
}

// Service orchestrates a search request.
type Service struct {
	planner       Planner
	prefs         CriterionCounter
	rewriter      Rewriter
	listings      ListingStore
	ranker        Ranker
	cache         ResultCache
	defaultUserID string
	logger        *zap.Logger
}

// New creates a search service. An empty defaultUserID uses DefaultUserID.
func New(deps Deps, defaultUserID string) *Service {
	if defaultUserID == "" {
		defaultUserID = DefaultUserID
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{
		planner:       deps.Planner,
		prefs:         deps.Prefs,
		rewriter:      deps.Rewriter,
		listings:      deps.Listings,
		ranker:        deps.Ranker,
		cache:         deps.Cache,
		defaultUserID: defaultUserID,
		logger:        deps.Logger,
	}
}

// NormalizeQuery trims, lowercases and collapses inner whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Search returns ranked listings for a free-text query.
// Cached results are returned as stored, without planning or ranking.
func (s *Service) Search(ctx context.Context, userID, query string) ([]domain.RankedListing, error) {
	start := time.Now()
	log := logger.FromContextOr(ctx, s.logger)

	q := NormalizeQuery(query)
	if q == "" {
		return nil, domain.ErrEmptyQuery
	}
	if userID == "" {
		userID = s.defaultUserID
	}

	cached, ok, err := s.cache.Get(ctx, q)
	if err != nil {
		log.Warn("Result cache read failed", zap.Error(err))
	}
	if ok {
		observe("hit", start)
		return cached, nil
	}

	p := s.planner.GeneratePlan(ctx, q)
	if len(p) == 0 {
		return nil, fmt.Errorf("planner returned no stages: %w", domain.ErrInvalidPlan)
	}

	s.countCriteria(ctx, log, userID, p)

	p = s.rewriter.Rewrite(ctx, p)

	listings, err := s.listings.Execute(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("execute plan: %w", err)
	}

	results := s.ranker.Rank(ctx, userID, listings)

	if err := s.cache.Set(ctx, q, results); err != nil {
		log.Warn("Result cache write failed", zap.Error(err))
	}

	log.Debug("Search completed",
		zap.String("plan", p.String()),
		zap.Int("results", len(results)),
	)
	observe("miss", start)
	return results, nil
}

func (s *Service) countCriteria(ctx context.Context, log *zap.Logger, userID string, p plan.Plan) {
	for _, f := range p.Filters() {
		for _, c := range trackedCriteria {
			if !f.Mentions(c) {
				continue
			}
			if err := s.prefs.IncrementCriterion(ctx, userID, c); err != nil {
				metrics.SignalWriteErrorsTotal.WithLabelValues("criteria").Inc()
				log.Warn("Criterion increment failed",
					zap.String("user_id", userID), zap.String("criterion", c), zap.Error(err))
			}
		}
	}
}

func observe(cache string, start time.Time) {
	metrics.SearchRequestsTotal.WithLabelValues(cache).Inc()
	metrics.SearchDuration.WithLabelValues(cache).Observe(time.Since(start).Seconds())
}
