// Package payment wraps the hosted checkout gateway consumed by the
// membership and booking flows.
package payment

import (
	"context"
	"errors"
)

// ErrCancelled signals the user abandoned the hosted checkout.
var ErrCancelled = errors.New("payment: checkout cancelled")

// CheckoutOptions describe a hosted checkout session.
type CheckoutOptions struct {
	Description string `json:"description"`
	Currency    string `json:"currency"`
	AmountPaise int64  `json:"amount"`
	Name        string `json:"name"`
	Contact     string `json:"contact"`
	Email       string `json:"email,omitempty"`
}

// CheckoutResult carries the gateway's payment identifier on success.
type CheckoutResult struct {
	PaymentID string `json:"payment_id"`
}

// Gateway opens a hosted checkout and reports its outcome.
type Gateway interface {
	OpenCheckout(ctx context.Context, opts CheckoutOptions) (CheckoutResult, error)
}
