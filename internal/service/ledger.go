package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/provider"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/signature"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

const (
	// DefaultProviderTimeout bounds a single payment provider call.
	DefaultProviderTimeout = 10 * time.Second

	revokeAttempts       = 3
	defaultRevokeBackoff = 100 * time.Millisecond
)

// LedgerService owns the order state machine: it opens orders with the
// payment provider, verifies payment callbacks and processes refunds.
type LedgerService struct {
	orders          repository.OrderRepository
	products        repository.ProductRepository
	entitlements    repository.EntitlementCache
	provider        provider.Provider
	verifier        *signature.Verifier
	events          OrderEventPublisher
	logger          *slog.Logger
	providerTimeout time.Duration
	revokeBackoff   time.Duration
	now             func() time.Time
}

// LedgerDeps groups the collaborators of a LedgerService.
type LedgerDeps struct {
	Orders          repository.OrderRepository
	Products        repository.ProductRepository
	Entitlements    repository.EntitlementCache
	Provider        provider.Provider
	Verifier        *signature.Verifier
	Events          OrderEventPublisher
	ProviderTimeout time.Duration
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(deps LedgerDeps, logger *slog.Logger) *LedgerService {
	timeout := deps.ProviderTimeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &LedgerService{
		orders:          deps.Orders,
		products:        deps.Products,
		entitlements:    deps.Entitlements,
		provider:        deps.Provider,
		verifier:        deps.Verifier,
		events:          deps.Events,
		logger:          logger,
		providerTimeout: timeout,
		revokeBackoff:   defaultRevokeBackoff,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// IntentResult is what the client needs to open the provider's checkout.
type IntentResult struct {
	OrderID         string `json:"order_id"`
	ProviderOrderID string `json:"provider_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	KeyID           string `json:"key_id"`
}

// CreateIntent opens a pending order for buyerID and productID with the
// payment provider.
func (s *LedgerService) CreateIntent(ctx context.Context, buyerID, productID string) (*IntentResult, error) {
	if buyerID == "" || productID == "" {
		return nil, apperrors.InvalidInput("buyer and product are required")
	}

	paid, err := s.orders.HasPaid(ctx, buyerID, productID)
	if err != nil {
		return nil, fmt.Errorf("check existing purchase: %w", err)
	}
	if paid {
		return nil, apperrors.Conflict("product already purchased")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !product.Purchasable() {
		return nil, apperrors.InvalidInput("product is not available for purchase")
	}

	now := s.now()
	amount := product.AmountMinor()

	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	res, err := s.provider.CreateOrder(pctx, &provider.CreateOrderInput{
		Amount:   amount,
		Currency: domain.DefaultCurrency,
		Receipt:  receipt(productID, buyerID, now),
		Notes: map[string]string{
			"productId": productID,
			"buyerId":   buyerID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create provider order: %w", providerError(err))
	}

	currency := res.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	order := &domain.Order{
		ID:              uuid.New().String(),
		BuyerID:         buyerID,
		ProductID:       productID,
		ProviderOrderID: res.ProviderOrderID,
		Amount:          amount,
		Currency:        currency,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	ordersCreated.Inc()

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("product_id", productID),
		slog.String("provider_order_id", order.ProviderOrderID),
		slog.Int64("amount", amount),
	)

	return &IntentResult{
		OrderID:         order.ID,
		ProviderOrderID: order.ProviderOrderID,
		Amount:          order.Amount,
		Currency:        order.Currency,
		KeyID:           s.provider.KeyID(),
	}, nil
}

// VerifyPayment applies a payment callback. A replay of an already
// verified payment succeeds without side effects. A bad signature fails the
// pending order and returns Unauthorized.
func (s *LedgerService) VerifyPayment(ctx context.Context, providerOrderID, providerPaymentID, sig string) (*domain.Order, error) {
	if providerOrderID == "" || providerPaymentID == "" || sig == "" {
		return nil, apperrors.InvalidInput("provider_order_id, provider_payment_id and signature are required")
	}

	order, err := s.orders.GetByProviderOrderID(ctx, providerOrderID)
	if err != nil {
		return nil, fmt.Errorf("get order by provider reference: %w", err)
	}

	switch order.Status {
	case domain.OrderStatusPaid:
		paymentVerifications.WithLabelValues(verifyResultReplay).Inc()
		return order, nil
	case domain.OrderStatusPending:
	default:
		paymentVerifications.WithLabelValues(verifyResultRejected).Inc()
		return nil, apperrors.InvalidTransition("order", order.Status, domain.OrderStatusPaid)
	}

	if !s.verifier.Verify(providerOrderID, providerPaymentID, sig) {
		paymentVerifications.WithLabelValues(verifyResultInvalidSignature).Inc()
		s.markFailed(ctx, order)
		return nil, apperrors.Unauthorized("payment signature verification failed")
	}

	paid, err := s.orders.MarkPaid(ctx, order.ID, providerPaymentID, sig, s.now())
	switch {
	case errors.Is(err, repository.ErrAlreadyPaid):
		paymentVerifications.WithLabelValues(verifyResultRejected).Inc()
		return nil, apperrors.InvalidTransition("order", order.Status, domain.OrderStatusPaid)
	case errors.Is(err, repository.ErrStatusChanged):
		return s.resolveLostPayment(ctx, order.ID)
	case err != nil:
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	paymentVerifications.WithLabelValues(verifyResultVerified).Inc()
	orderTransitions.WithLabelValues(domain.OrderStatusPaid).Inc()

	cctx, cancel := afterCommit(ctx)
	defer cancel()

	if err := s.entitlements.Grant(cctx, paid.BuyerID, paid.ProductID); err != nil {
		s.logger.WarnContext(ctx, "failed to cache entitlement",
			slog.String("order_id", paid.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.events.PublishOrderPaid(cctx, paid); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.paid event",
			slog.String("order_id", paid.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment verified",
		slog.String("order_id", paid.ID),
		slog.String("product_id", paid.ProductID),
	)
	return paid, nil
}

// resolveLostPayment re-reads an order whose conditional paid update lost a
// race. Another callback for the same payment having won counts as success.
func (s *LedgerService) resolveLostPayment(ctx context.Context, orderID string) (*domain.Order, error) {
	current, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("re-read order: %w", err)
	}
	if current.IsPaid() {
		paymentVerifications.WithLabelValues(verifyResultReplay).Inc()
		return current, nil
	}
	paymentVerifications.WithLabelValues(verifyResultRejected).Inc()
	return nil, apperrors.InvalidTransition("order", current.Status, domain.OrderStatusPaid)
}

// markFailed records a rejected signature. The verdict is final once
// reached, so the write does not depend on the caller staying connected.
func (s *LedgerService) markFailed(ctx context.Context, order *domain.Order) {
	ctx, cancel := afterCommit(ctx)
	defer cancel()

	now := s.now()
	err := s.orders.MarkFailed(ctx, order.ID, now)
	switch {
	case errors.Is(err, repository.ErrStatusChanged):
		s.logger.DebugContext(ctx, "order left pending before it could be failed",
			slog.String("order_id", order.ID),
		)
		return
	case err != nil:
		s.logger.ErrorContext(ctx, "failed to mark order failed",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	orderTransitions.WithLabelValues(domain.OrderStatusFailed).Inc()

	failed := *order
	failed.Status = domain.OrderStatusFailed
	failed.UpdatedAt = now
	if err := s.events.PublishOrderFailed(ctx, &failed); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.failed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.WarnContext(ctx, "payment signature rejected, order failed",
		slog.String("order_id", order.ID),
		slog.String("provider_order_id", order.ProviderOrderID),
	)
}

// Refund returns a paid order's payment to the buyer and moves the order to
// refunded. Only admins may refund. Files already downloaded are not
// revoked; the buyer only loses future access.
func (s *LedgerService) Refund(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only admins can refund orders")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !order.CanTransitionTo(domain.OrderStatusRefunded) {
		if order.Status == domain.OrderStatusRefunded {
			// Repeat the revocation in case the first refund could not.
			cctx, cancel := afterCommit(ctx)
			_ = s.revokeEntitlement(cctx, order)
			cancel()
		}
		return nil, apperrors.InvalidTransition("order", order.Status, domain.OrderStatusRefunded)
	}

	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	res, err := s.provider.Refund(pctx, &provider.RefundInput{
		ProviderPaymentID: order.ProviderPaymentID,
		Amount:            order.Amount,
		IdempotencyKey:    "refund-" + order.ID,
		Notes:             map[string]string{"orderId": order.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("refund provider payment: %w", providerError(err))
	}

	refunded, err := s.orders.MarkRefunded(ctx, order.ID, s.now())
	if errors.Is(err, repository.ErrStatusChanged) {
		current, rerr := s.orders.GetByID(ctx, order.ID)
		if rerr != nil {
			return nil, fmt.Errorf("re-read order: %w", rerr)
		}
		if current.Status == domain.OrderStatusRefunded {
			return current, nil
		}
		return nil, apperrors.InvalidTransition("order", current.Status, domain.OrderStatusRefunded)
	}
	if err != nil {
		return nil, fmt.Errorf("mark order refunded: %w", err)
	}
	orderTransitions.WithLabelValues(domain.OrderStatusRefunded).Inc()

	cctx, cancel := afterCommit(ctx)
	defer cancel()

	revokeErr := s.revokeEntitlement(cctx, refunded)
	if err := s.events.PublishOrderRefunded(cctx, refunded); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.refunded event",
			slog.String("order_id", refunded.ID),
			slog.String("error", err.Error()),
		)
	}
	if revokeErr != nil {
		return nil, apperrors.Internal(fmt.Errorf("order refunded but cached entitlement not revoked: %w", revokeErr))
	}

	s.logger.InfoContext(ctx, "order refunded",
		slog.String("order_id", refunded.ID),
		slog.String("provider_refund_id", res.ProviderRefundID),
		slog.String("refund_status", res.Status),
	)
	return refunded, nil
}

// revokeEntitlement revokes the cached grant of a refunded order, retrying
// with a linear backoff.
func (s *LedgerService) revokeEntitlement(ctx context.Context, o *domain.Order) error {
	var err error
	for attempt := 1; attempt <= revokeAttempts; attempt++ {
		if err = s.entitlements.Revoke(ctx, o.BuyerID, o.ProductID); err == nil {
			return nil
		}
		s.logger.WarnContext(ctx, "failed to revoke cached entitlement",
			slog.String("order_id", o.ID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if attempt == revokeAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("revoke entitlement: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * s.revokeBackoff):
		}
	}
	s.logger.ErrorContext(ctx, "giving up on revoking cached entitlement",
		slog.String("order_id", o.ID),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("revoke entitlement: %w", err)
}

// GetOrder returns an order to its buyer or to an admin. Buyers get the
// redacted view.
func (s *LedgerService) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !actor.CanModify(order.BuyerID) {
		return nil, apperrors.Forbidden("order belongs to another buyer")
	}
	if actor.IsAdmin() {
		return order, nil
	}
	return order.Redacted(), nil
}

// ListMyOrders returns the buyer's paid orders, newest purchase first, with
// payment references redacted.
func (s *LedgerService) ListMyOrders(ctx context.Context, buyerID string, page, perPage int) ([]domain.Order, int, error) {
	orders, total, err := s.orders.ListPaidByBuyer(ctx, buyerID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list paid orders: %w", err)
	}
	for i := range orders {
		orders[i] = *orders[i].Redacted()
	}
	return orders, total, nil
}

// receipt builds the provider receipt, cut to the provider's length limit.
func receipt(productID, buyerID string, at time.Time) string {
	r := fmt.Sprintf("order_%s_%s_%d", productID, buyerID, at.UnixMilli())
	if len(r) > provider.MaxReceiptLength {
		r = r[:provider.MaxReceiptLength]
	}
	return r
}

// providerError makes sure a failed provider call surfaces as a retryable
// ProviderError even when the provider returned a bare error.
func providerError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ProviderFailure("payment provider timed out", err)
	}
	return apperrors.ProviderFailure("payment provider request failed", err)
}
