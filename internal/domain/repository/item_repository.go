package repository

import (
	"context"

	"github.com/turtacn/itemsvc/internal/domain/models"
)

// ItemRepository defines the interface for item lookups.
//
// FindByID returns a NotFound error when no row matches and an UpstreamUnavailable error when
// the store cannot be reached in time (see pkg/errors).
type ItemRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Item, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
