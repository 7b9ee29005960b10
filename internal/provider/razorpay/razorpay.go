package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/provider"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/httpclient"
)

const upstreamName = "razorpay"

// Config holds the Razorpay API credentials.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
}

// Provider talks to the Razorpay orders and refunds API.
type Provider struct {
	cfg    Config
	client *httpclient.CircuitBreakerClient
	logger *slog.Logger
}

// NewProvider creates a Razorpay provider sending requests through client.
func NewProvider(cfg Config, client *httpclient.CircuitBreakerClient, logger *slog.Logger) *Provider {
	return &Provider{cfg: cfg, client: client, logger: logger}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return upstreamName
}

// KeyID returns the public key id.
func (p *Provider) KeyID() string {
	return p.cfg.KeyID
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateOrder opens a Razorpay order. The request is never retried: a
// duplicate POST would open a second order.
func (p *Provider) CreateOrder(ctx context.Context, input *provider.CreateOrderInput) (*provider.CreateOrderResult, error) {
	body := createOrderRequest{
		Amount:   input.Amount,
		Currency: input.Currency,
		Receipt:  input.Receipt,
		Notes:    input.Notes,
	}

	var out orderResponse
	if err := p.post(ctx, "/orders", body, "", &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, apperrors.ProviderFailure("razorpay returned an order without id", nil)
	}

	return &provider.CreateOrderResult{
		ProviderOrderID: out.ID,
		Amount:          out.Amount,
		Currency:        out.Currency,
	}, nil
}

type refundRequest struct {
	Amount int64             `json:"amount,omitempty"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Refund refunds a captured payment. The idempotency key makes the call
// safe to retry.
func (p *Provider) Refund(ctx context.Context, input *provider.RefundInput) (*provider.RefundResult, error) {
	path := "/payments/" + url.PathEscape(input.ProviderPaymentID) + "/refund"

	var out refundResponse
	if err := p.post(ctx, path, refundRequest{Amount: input.Amount, Notes: input.Notes}, input.IdempotencyKey, &out); err != nil {
		return nil, err
	}

	return &provider.RefundResult{
		ProviderRefundID: out.ID,
		Status:           out.Status,
	}, nil
}

func (p *Provider) post(ctx context.Context, path string, body any, idempotencyKey string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal razorpay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build razorpay request: %w", err)
	}
	req.SetBasicAuth(p.cfg.KeyID, p.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(httpclient.IdempotencyKeyHeader, idempotencyKey)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return transportError(err)
	}

	if resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, upstreamName)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.ProviderFailure("razorpay returned an unreadable response", err)
	}
	return nil
}

func transportError(err error) error {
	var upstream *httpclient.UpstreamError
	switch {
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return apperrors.ProviderFailure("payment provider temporarily unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ProviderFailure("payment provider timed out", err)
	case errors.As(err, &upstream):
		return apperrors.ProviderFailure("payment provider error", err)
	default:
		return apperrors.ProviderFailure("payment provider unreachable", err)
	}
}
