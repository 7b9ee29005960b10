package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/provider"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
)

// --- Mock Repositories ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	args := m.Called(ctx, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) HasPaid(ctx context.Context, buyerID, productID string) (bool, error) {
	args := m.Called(ctx, buyerID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, id, providerPaymentID, sig string, at time.Time) (*domain.Order, error) {
	args := m.Called(ctx, id, providerPaymentID, sig, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) MarkFailed(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockOrderRepository) MarkRefunded(ctx context.Context, id string, at time.Time) (*domain.Order, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ListPaidByBuyer(ctx context.Context, buyerID string, page, perPage int) ([]domain.Order, int, error) {
	args := m.Called(ctx, buyerID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) ListTransactions(ctx context.Context, filter repository.TransactionFilter) (*repository.TransactionPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TransactionPage), args.Error(1)
}

func (m *mockOrderRepository) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardStats), args.Error(1)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetFiles(ctx context.Context, productID string) (*domain.ProductFiles, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductFiles), args.Error(1)
}

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Update(ctx context.Context, id string, patch repository.ReviewPatch) (*domain.Review, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) SetApproval(ctx context.Context, id string, approved bool) (*domain.Review, error) {
	args := m.Called(ctx, id, approved)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListApprovedByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error) {
	args := m.Called(ctx, productID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

type mockRatingRepository struct {
	mock.Mock
}

func (m *mockRatingRepository) Recompute(ctx context.Context, productID string) (*domain.ProductRating, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductRating), args.Error(1)
}

func (m *mockRatingRepository) MarkStale(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *mockRatingRepository) ListStale(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockEntitlementCache struct {
	mock.Mock
}

func (m *mockEntitlementCache) IsEntitled(ctx context.Context, buyerID, productID string) (bool, error) {
	args := m.Called(ctx, buyerID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockEntitlementCache) Grant(ctx context.Context, buyerID, productID string) error {
	args := m.Called(ctx, buyerID, productID)
	return args.Error(0)
}

func (m *mockEntitlementCache) Revoke(ctx context.Context, buyerID, productID string) error {
	args := m.Called(ctx, buyerID, productID)
	return args.Error(0)
}

// --- Mock Collaborators ---

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string {
	return "test"
}

func (m *mockProvider) KeyID() string {
	return "rzp_test_key"
}

func (m *mockProvider) CreateOrder(ctx context.Context, input *provider.CreateOrderInput) (*provider.CreateOrderResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CreateOrderResult), args.Error(1)
}

func (m *mockProvider) Refund(ctx context.Context, input *provider.RefundInput) (*provider.RefundResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.RefundResult), args.Error(1)
}

// mockEvents implements every event publisher interface of the package.
type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishOrderPaid(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockEvents) PublishOrderFailed(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockEvents) PublishOrderRefunded(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockEvents) PublishReviewChanged(ctx context.Context, r *domain.Review, action string) error {
	args := m.Called(ctx, r, action)
	return args.Error(0)
}

func (m *mockEvents) PublishRatingRecomputeRequested(ctx context.Context, productID, reason string) error {
	args := m.Called(ctx, productID, reason)
	return args.Error(0)
}

type mockEntitlementChecker struct {
	mock.Mock
}

func (m *mockEntitlementChecker) Entitled(ctx context.Context, buyerID, productID string) (bool, error) {
	args := m.Called(ctx, buyerID, productID)
	return args.Bool(0), args.Error(1)
}

type mockRatingRefresher struct {
	mock.Mock
}

func (m *mockRatingRefresher) Refresh(ctx context.Context, productID string) {
	m.Called(ctx, productID)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var testNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// liveCtx matches a context that has not been canceled.
var liveCtx = mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })

// canceledCtx returns a context whose request has already gone away.
func canceledCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

var (
	buyerActor = domain.Actor{UserID: "buyer-1", Role: domain.RoleBuyer}
	otherActor = domain.Actor{UserID: "buyer-2", Role: domain.RoleBuyer}
	adminActor = domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}
)
