package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentPayPal         PaymentMethod = "paypal"
)

// Order records a single purchase. Item name and price are snapshotted at
// purchase time. Only Status changes after creation, and that belongs to
// fulfillment, not this service.
type Order struct {
	ID            string        `json:"id"`
	ItemID        string        `json:"item_id"`
	ItemName      string        `json:"item_name"`
	SellerID      string        `json:"seller_id"`
	BuyerID       string        `json:"buyer_id"`
	Quantity      int           `json:"quantity"`
	TotalPrice    float64       `json:"total_price"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        OrderStatus   `json:"status"`
	Address       string        `json:"address"`
	ContactNumber string        `json:"contact_number"`
	PaymentRef    string        `json:"payment_ref,omitempty"` // external payment reference, PayPal only
	CreatedAt     time.Time     `json:"created_at"`
}
