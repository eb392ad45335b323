// Package ranking scores listings against a user's preference counters.
package ranking

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/logger"
)

const (
	// BaseScore is the score every listing starts with.
	BaseScore = 100.0
	// PriceWeight multiplies the user's price counter.
	PriceWeight = 5.0
	// PriceThreshold is the price counter a user must exceed to get the price bonus.
	PriceThreshold = 3
)

type tier struct {
	within float64
	bonus  float64
}

// distanceTiers are checked in order; the first tier containing the distance wins.
var distanceTiers = []tier{
	{within: 2000, bonus: 20},
	{within: 5000, bonus: 10},
	{within: 10000, bonus: 5},
}

// Service ranks search results.
type Service struct {
	prefs  PreferenceReader
	logger *zap.Logger
}

// New creates a ranker.
func New(prefs PreferenceReader, logger *zap.Logger) *Service {
	return &Service{prefs: prefs, logger: logger}
}

// Rank scores listings and sorts them by score, highest first.
// Listings with equal scores keep their input order.
func (s *Service) Rank(ctx context.Context, userID string, listings []domain.Listing) []domain.RankedListing {
	counters, err := s.prefs.Preferences(ctx, userID)
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Ranking without preferences",
			zap.String("user_id", userID), zap.Error(err))
		counters = nil
	}
	return Score(counters, listings)
}

// Score ranks listings against the given counters. It is a pure function of its inputs.
func Score(counters map[string]int64, listings []domain.Listing) []domain.RankedListing {
	ranked := make([]domain.RankedListing, len(listings))
	priceCount := counters[domain.CriterionPrice]
	for i, l := range listings {
		ranked[i] = domain.RankedListing{Listing: l, Score: score(priceCount, l)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func score(priceCount int64, l domain.Listing) float64 {
	s := BaseScore
	if priceCount > PriceThreshold && l.Price != nil {
		s += float64(priceCount) * PriceWeight
	}
	if l.Distance != nil {
		s += DistanceBonus(*l.Distance)
	}
	return s
}

// DistanceBonus returns the bonus for a listing at distance meters from the search point.
func DistanceBonus(distance float64) float64 {
	for _, t := range distanceTiers {
		if distance <= t.within {
			return t.bonus
		}
	}
	return 0
}
