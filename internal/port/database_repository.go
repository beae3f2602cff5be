package port

import (
	"context"

	"github.com/builderhub/checkout/internal/core/domain"
)

type DatabaseRepository interface {
	// GetItem returns nil, nil when the item does not exist.
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)

	ListItems(ctx context.Context) ([]domain.Item, error)

	CreateItem(ctx context.Context, item *domain.Item) error

	// DecrementStock atomically decreases stock, returns false if insufficient.
	// Single conditional update, never a read-then-write pair.
	DecrementStock(ctx context.Context, itemID string, quantity int) (bool, error)

	// IncrementStock restores stock (for rollback on failure).
	IncrementStock(ctx context.Context, itemID string, quantity int) error

	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder returns nil, nil when the order does not exist.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	CreateNotification(ctx context.Context, n domain.Notification) error

	ListNotifications(ctx context.Context, recipientID string) ([]domain.Notification, error)

	MarkNotificationRead(ctx context.Context, notificationID string) error

	// GetUser returns nil, nil when no profile exists for the id.
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// ItemReader is the read-side subset used by browsing endpoints; the
// cached reader satisfies it in front of the database.
type ItemReader interface {
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
}
