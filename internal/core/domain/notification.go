package domain

import "time"

// Notification tells a seller about an order event. Creation is
// best-effort: a failed notification never rolls back the order.
type Notification struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	RecipientID string    `json:"recipient_id"`
	ActorID     string    `json:"actor_id"`
	OrderID     string    `json:"order_id"`
	Message     string    `json:"message"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}
