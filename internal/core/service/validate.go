package service

import (
	"fmt"
	"math"
	"strings"
)

const contactDigits = 10

func validateRequest(req PurchaseRequest) error {
	if strings.TrimSpace(req.Address) == "" {
		return &ValidationError{Reason: "delivery address is required"}
	}
	if len(digitsOf(req.ContactNumber)) != contactDigits {
		return &ValidationError{Reason: fmt.Sprintf("contact number must contain exactly %d digits", contactDigits)}
	}
	if req.Quantity < 1 || req.Quantity > req.Item.Stock {
		return &ValidationError{Reason: fmt.Sprintf("quantity must be between 1 and %d", req.Item.Stock)}
	}
	return nil
}

// digitsOf strips every non-digit character.
func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// round2 rounds to the currency's minor unit.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
