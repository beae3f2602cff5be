package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/builderhub/checkout/internal/core/domain"
	"github.com/builderhub/checkout/internal/port"
)

const NotificationTypeOrderPlaced = "order_placed"

const dispatchTimeout = 5 * time.Second

// Notifier writes seller notifications and publishes matching events,
// asynchronously and best-effort: failures are logged, never surfaced
// to the buyer, never retried.
type Notifier struct {
	db     port.DatabaseRepository
	events port.EventPublisher // nil disables event publishing
	queue  chan domain.Order
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewNotifier(db port.DatabaseRepository, events port.EventPublisher, queueSize int, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		db:     db,
		events: events,
		queue:  make(chan domain.Order, queueSize),
		logger: logger,
	}
}

func (n *Notifier) Start(workers int) {
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.workerLoop()
		}()
	}
}

// OrderPlaced enqueues a seller notification for the order. A full
// queue drops the notification rather than blocking the purchase.
func (n *Notifier) OrderPlaced(order domain.Order) {
	select {
	case n.queue <- order:
	default:
		n.logger.Warn("notification queue full, dropping", "order", order.ID)
	}
}

// Close stops accepting work and waits for in-flight dispatches.
func (n *Notifier) Close() {
	close(n.queue)
	n.wg.Wait()
}

func (n *Notifier) workerLoop() {
	for order := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		n.dispatch(ctx, order)
		cancel()
	}
}

func (n *Notifier) dispatch(ctx context.Context, order domain.Order) {
	// A missing buyer profile is not an error; fall back to the id.
	buyerName := order.BuyerID
	user, err := n.db.GetUser(ctx, order.BuyerID)
	if err != nil {
		n.logger.Warn("buyer profile lookup failed", "buyer", order.BuyerID, "error", err)
	} else if user != nil && user.DisplayName != "" {
		buyerName = user.DisplayName
	}

	notif := domain.Notification{
		ID:          uuid.NewString(),
		Type:        NotificationTypeOrderPlaced,
		RecipientID: order.SellerID,
		ActorID:     order.BuyerID,
		OrderID:     order.ID,
		Message:     fmt.Sprintf("%s ordered %d x %s", buyerName, order.Quantity, order.ItemName),
		CreatedAt:   time.Now(),
	}

	if err := n.db.CreateNotification(ctx, notif); err != nil {
		n.logger.Error("notification create failed", "order", order.ID, "error", err)
	}

	if n.events != nil {
		if err := n.events.PublishNotification(ctx, notif); err != nil {
			n.logger.Error("notification publish failed", "order", order.ID, "error", err)
		}
	}
}
