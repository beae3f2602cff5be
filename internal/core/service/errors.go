package service

import "errors"

var (
	// ErrInsufficientStock means the conditional decrement found less
	// stock than the requested quantity at commit time.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrPaymentCancelled marks an attempt the buyer abandoned by
	// closing the payment view. It is a terminal state, not a failure.
	ErrPaymentCancelled = errors.New("payment cancelled by user")

	ErrAttemptNotFound = errors.New("purchase attempt not found")

	// ErrAttemptResolved rejects duplicate or late outcome messages for
	// an attempt that already reached a terminal state.
	ErrAttemptResolved = errors.New("purchase attempt already resolved")

	// ErrOrderIncomplete means stock or payment was captured but the
	// order record could not be confirmed. Callers must tell the buyer
	// the purchase may have succeeded and to contact support.
	ErrOrderIncomplete = errors.New("order confirmation incomplete, contact support")
)

// ValidationError is returned for malformed buyer input before any
// side effect is issued.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid purchase request: " + e.Reason
}

// PaymentError is a failure reported by the payment widget (SDK load,
// order creation, capture, or transport). No mutation has happened.
type PaymentError struct {
	Message string
}

func (e *PaymentError) Error() string {
	return "payment failed: " + e.Message
}
