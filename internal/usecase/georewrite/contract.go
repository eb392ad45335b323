package georewrite

import (
	"context"

	"github.com/kailas-cloud/rentsearch/internal/domain"
)

// Resolver maps a place name to coordinates.
type Resolver interface {
	Resolve(ctx context.Context, place string) (domain.Coordinates, error)
}
