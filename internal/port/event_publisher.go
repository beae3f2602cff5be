package port

import (
	"context"

	"github.com/builderhub/checkout/internal/core/domain"
)

// EventPublisher fans notification events out to interested consumers
// (push senders, badge counters). Publishing is best-effort.
type EventPublisher interface {
	PublishNotification(ctx context.Context, n domain.Notification) error
}
