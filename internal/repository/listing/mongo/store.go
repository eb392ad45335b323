// Package mongo executes query plans against a MongoDB listing collection.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
	"github.com/kailas-cloud/rentsearch/internal/metrics"
)

const driverName = "mongo"

// Store reads listings through aggregation pipelines.
type Store struct {
	coll   *mongo.Collection
	limit  int64
	logger *zap.Logger
}

// New creates a listing store over coll. limit caps every result set (0 = no cap).
func New(coll *mongo.Collection, limit int64, logger *zap.Logger) *Store {
	return &Store{coll: coll, limit: limit, logger: logger}
}

// Execute runs a resolved plan and returns the matching listings in pipeline order.
func (s *Store) Execute(ctx context.Context, p plan.Plan) ([]domain.Listing, error) {
	pipeline, err := BuildPipeline(p, s.limit)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := s.aggregate(ctx, pipeline)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ListingStoreDuration.WithLabelValues(driverName, status).Observe(time.Since(start).Seconds())

	if err != nil {
		s.logger.Error("Listing query failed", zap.Stringer("plan", p), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrListingStore, err)
	}
	return out, nil
}

func (s *Store) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]domain.Listing, error) {
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]domain.Listing, 0)
	for cur.Next(ctx) {
		var doc listingDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode listing: %w", err)
		}
		out = append(out, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}
	return out, nil
}

// HealthCheck pings the primary.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping listing database: %w", err)
	}
	return nil
}
