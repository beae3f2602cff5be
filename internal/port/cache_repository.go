package port

import (
	"context"

	"github.com/builderhub/checkout/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists.
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// GetItem returns the cached snapshot, or nil, nil on a miss.
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)

	SetItem(ctx context.Context, item *domain.Item) error

	InvalidateItem(ctx context.Context, itemID string) error
}
