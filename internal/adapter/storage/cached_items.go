package storage

import (
	"context"
	"log/slog"

	"github.com/builderhub/checkout/internal/core/domain"
	"github.com/builderhub/checkout/internal/port"
)

// CachedItemReader serves item reads cache-first. Cache problems fall
// through to the database; backfill failures are logged and ignored.
type CachedItemReader struct {
	db     port.DatabaseRepository
	cache  port.CacheRepository
	logger *slog.Logger
}

func NewCachedItemReader(db port.DatabaseRepository, cache port.CacheRepository, logger *slog.Logger) *CachedItemReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedItemReader{db: db, cache: cache, logger: logger}
}

func (r *CachedItemReader) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	cached, err := r.cache.GetItem(ctx, itemID)
	if err != nil {
		r.logger.Warn("item cache read failed", "item", itemID, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	item, err := r.db.GetItem(ctx, itemID)
	if err != nil || item == nil {
		return item, err
	}

	if err := r.cache.SetItem(ctx, item); err != nil {
		r.logger.Warn("item cache backfill failed", "item", itemID, "error", err)
	}
	return item, nil
}

// ListItems always hits the database: listings change with every
// purchase and the per-item snapshots already absorb the hot reads.
func (r *CachedItemReader) ListItems(ctx context.Context) ([]domain.Item, error) {
	return r.db.ListItems(ctx)
}
