package repository

import (
	"context"
	"errors"
	"time"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
)

var (
	// ErrStatusChanged is returned by a conditional transition whose guard
	// no longer matched: another request moved the order first.
	ErrStatusChanged = errors.New("order status changed concurrently")

	// ErrAlreadyPaid is returned when marking an order paid would give the
	// buyer a second paid order for the same product.
	ErrAlreadyPaid = errors.New("buyer already has a paid order for product")
)

// TransactionFilter defines filter criteria for the admin transaction list.
// From and To bound purchased_at inclusively.
type TransactionFilter struct {
	Status  *string
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

// ReviewPatch holds the review fields to change. Nil fields keep their
// stored value.
type ReviewPatch struct {
	Rating    *int
	Comment   *string
	UpdatedAt time.Time
}

// TransactionPage is one page of orders plus the revenue of the paid orders
// matching the filter.
type TransactionPage struct {
	Orders       []domain.Order
	TotalCount   int
	TotalRevenue int64
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts a new pending order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByProviderOrderID retrieves an order by the provider's order reference.
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error)

	// HasPaid reports whether the buyer has a paid order for the product.
	HasPaid(ctx context.Context, buyerID, productID string) (bool, error)

	// MarkPaid moves a pending order to paid. It returns ErrStatusChanged if
	// the order is no longer pending and ErrAlreadyPaid if the buyer already
	// owns the product through another order.
	MarkPaid(ctx context.Context, id, providerPaymentID, signature string, at time.Time) (*domain.Order, error)

	// MarkFailed moves a pending order to failed, or returns ErrStatusChanged.
	MarkFailed(ctx context.Context, id string, at time.Time) error

	// MarkRefunded moves a paid order to refunded, or returns ErrStatusChanged.
	MarkRefunded(ctx context.Context, id string, at time.Time) (*domain.Order, error)

	// ListPaidByBuyer returns the buyer's paid orders, newest purchase first.
	ListPaidByBuyer(ctx context.Context, buyerID string, page, perPage int) ([]domain.Order, int, error)

	// ListTransactions returns orders matching filter, newest first.
	ListTransactions(ctx context.Context, filter TransactionFilter) (*TransactionPage, error)

	// Stats returns the admin dashboard figures.
	Stats(ctx context.Context) (*domain.DashboardStats, error)
}

// ProductRepository reads the catalog facts the core depends on.
type ProductRepository interface {
	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetFiles retrieves the downloadable asset paths of a product.
	GetFiles(ctx context.Context, productID string) (*domain.ProductFiles, error)
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a review. A second review by the same buyer for the
	// same product fails with apperrors.ErrAlreadyExists.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// Update applies patch in a single statement and returns the stored
	// review, so concurrent partial updates of different fields both land.
	Update(ctx context.Context, id string, patch ReviewPatch) (*domain.Review, error)

	// Delete removes a review.
	Delete(ctx context.Context, id string) error

	// SetApproval changes the moderation flag of a review.
	SetApproval(ctx context.Context, id string, approved bool) (*domain.Review, error)

	// ListApprovedByProduct returns approved reviews of a product, newest first.
	ListApprovedByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error)
}

// RatingRepository recomputes product rating aggregates.
type RatingRepository interface {
	// Recompute rewrites the product's rating and total_ratings from its
	// approved reviews inside one transaction holding the product row lock.
	// It also clears the product's stale flag.
	Recompute(ctx context.Context, productID string) (*domain.ProductRating, error)

	// MarkStale flags a product whose aggregate could not be recomputed.
	MarkStale(ctx context.Context, productID string) error

	// ListStale returns up to limit flagged products, oldest first.
	ListStale(ctx context.Context, limit int) ([]string, error)
}

// EntitlementCache holds positive entitlement results only. A miss means
// "ask the ledger", never "not entitled".
type EntitlementCache interface {
	// IsEntitled reports whether a grant for the pair is cached.
	IsEntitled(ctx context.Context, buyerID, productID string) (bool, error)

	// Grant caches a positive result for the pair unless a revocation for
	// it is still held.
	Grant(ctx context.Context, buyerID, productID string) error

	// Revoke replaces any cached grant for the pair with a revocation that
	// blocks later grants until it expires.
	Revoke(ctx context.Context, buyerID, productID string) error
}
