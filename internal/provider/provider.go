package provider

import (
	"context"
)

// CreateOrderInput holds the parameters for opening a payment order with
// the provider.
type CreateOrderInput struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// CreateOrderResult is the provider's view of a newly opened order.
type CreateOrderResult struct {
	ProviderOrderID string
	Amount          int64
	Currency        string
}

// RefundInput holds the parameters for refunding a captured payment.
type RefundInput struct {
	ProviderPaymentID string
	Amount            int64
	// IdempotencyKey lets the provider deduplicate retried refund calls.
	IdempotencyKey string
	Notes          map[string]string
}

// RefundResult holds the result of a refund operation from the payment provider.
type RefundResult struct {
	ProviderRefundID string
	Status           string
}

// Provider defines the interface for payment provider integrations.
type Provider interface {
	// Name returns the provider name (e.g., "mock", "razorpay").
	Name() string

	// KeyID returns the public key id the client checkout widget needs.
	KeyID() string

	// CreateOrder opens a payment order the buyer will pay against.
	CreateOrder(ctx context.Context, input *CreateOrderInput) (*CreateOrderResult, error)

	// Refund returns a captured payment to the buyer.
	Refund(ctx context.Context, input *RefundInput) (*RefundResult, error)
}

// MaxReceiptLength is the longest receipt the provider accepts.
const MaxReceiptLength = 40
