// Package georewrite replaces a plan's location placeholder with a proximity stage.
package georewrite

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
	"github.com/kailas-cloud/rentsearch/internal/logger"
)

// DefaultMaxDistance is the proximity radius in meters when none is configured.
const DefaultMaxDistance = 5000.0

// Service rewrites plans.
type Service struct {
	resolver    Resolver
	maxDistance float64
	logger      *zap.Logger
}

// New creates a rewriter. A non-positive maxDistance uses DefaultMaxDistance.
func New(resolver Resolver, maxDistance float64, logger *zap.Logger) *Service {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}
	return &Service{resolver: resolver, maxDistance: maxDistance, logger: logger}
}

// Rewrite returns a plan without a location placeholder. A resolved place becomes a
// leading Proximity stage; an unresolved one is dropped. The input is never modified.
func (s *Service) Rewrite(ctx context.Context, p plan.Plan) plan.Plan {
	lp, idx, ok := p.Location()
	if !ok {
		return p
	}
	rest := p.Without(idx).Clone()

	coords, err := s.resolver.Resolve(ctx, lp.Place)
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Dropping unresolved location",
			zap.String("place", lp.Place), zap.Error(err))
		return rest
	}

	prox := plan.Proximity{
		Near:          coords,
		MaxDistance:   s.maxDistance,
		DistanceField: plan.DefaultDistanceField,
	}
	return append(plan.Plan{prox}, rest...)
}
