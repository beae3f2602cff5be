package domain

import "time"

// Item is a marketplace listing owned by a seller. Stock never goes
// negative: purchases decrement it only through a conditional update.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	OwnerID     string    `json:"owner_id"`
	Images      []string  `json:"images,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
