package signals

import (
	"context"

	"github.com/kailas-cloud/rentsearch/internal/domain"
)

// SignalStore persists click effects and serves them back.
type SignalStore interface {
	PushHistory(ctx context.Context, userID, entry string) error
	IncrementPopularity(ctx context.Context, pool domain.Pool, listingID string) error
	IncrementAmenities(ctx context.Context, userID string, amenities []string) error
	History(ctx context.Context, userID string, limit int) ([]string, error)
	Preferences(ctx context.Context, userID string) (map[string]int64, error)
	Popular(ctx context.Context, pool domain.Pool, limit int) ([]domain.Counter, error)
}

// ListingIndex looks up listing attributes for enrichment.
type ListingIndex interface {
	LookupByRoom(ctx context.Context, roomID string) (domain.ListingSignals, error)
	LookupByPost(ctx context.Context, postID string) (domain.ListingSignals, error)
}
