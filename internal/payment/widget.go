// Package payment defines the message boundary between the embedded
// payment capture widget and the checkout workflow: configuration goes
// in, exactly one typed outcome message comes back out.
package payment

import (
	"encoding/json"
	"fmt"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusCancel  Status = "cancel"
	StatusError   Status = "error"
	StatusDebug   Status = "debug"
)

// Message is a single outcome report from the widget. Success carries
// the external payment reference in OrderID; error carries a
// human-readable cause. Debug messages are informational only.
type Message struct {
	Status  Status `json:"status"`
	OrderID string `json:"orderID,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Terminal reports whether the message resolves a purchase attempt.
func (m Message) Terminal() bool {
	switch m.Status {
	case StatusSuccess, StatusCancel, StatusError:
		return true
	}
	return false
}

// Parse decodes and validates a raw widget message. Unknown statuses
// and success messages without a payment reference are rejected.
func Parse(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("malformed widget message: %w", err)
	}

	switch m.Status {
	case StatusSuccess:
		if m.OrderID == "" {
			return Message{}, fmt.Errorf("success message missing orderID")
		}
	case StatusCancel, StatusError, StatusDebug:
	default:
		return Message{}, fmt.Errorf("unknown widget status %q", m.Status)
	}

	return m, nil
}

// WidgetConfig is what the host application passes into the embedded
// widget: the amount is already converted to the payment currency and
// formatted to its minor unit.
type WidgetConfig struct {
	AttemptID   string `json:"attempt_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}
