package mock

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/provider"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/signature"
)

// Provider is a mock payment provider that always succeeds.
// It is intended for development and testing purposes.
type Provider struct {
	verifier *signature.Verifier
}

// NewProvider creates a new mock payment provider. secret is the value the
// service verifies payment signatures with, so Pay produces signatures the
// service accepts.
func NewProvider(secret string) *Provider {
	return &Provider{verifier: signature.NewVerifier(secret)}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// KeyID returns a fixed public key id.
func (p *Provider) KeyID() string {
	return "rzp_test_mock"
}

// CreateOrder simulates opening a provider order.
func (p *Provider) CreateOrder(ctx context.Context, input *provider.CreateOrderInput) (*provider.CreateOrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &provider.CreateOrderResult{
		ProviderOrderID: "order_" + compactID(),
		Amount:          input.Amount,
		Currency:        input.Currency,
	}, nil
}

// Refund simulates a payment refund that always succeeds.
func (p *Provider) Refund(ctx context.Context, _ *provider.RefundInput) (*provider.RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &provider.RefundResult{
		ProviderRefundID: "rfnd_" + compactID(),
		Status:           "processed",
	}, nil
}

// Pay simulates the buyer completing checkout for providerOrderID and
// returns the payment reference and signature the client would post back.
func (p *Provider) Pay(providerOrderID string) (paymentID, sig string) {
	paymentID = "pay_" + compactID()
	return paymentID, p.verifier.Sign(providerOrderID, paymentID)
}

func compactID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}
