package http

import (
	"context"
	"net/http"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/service"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/middleware"
)

// maxBodyBytes limits request bodies to 1MB.
const maxBodyBytes = 1 << 20

// Ledger is the order API used by the handlers.
type Ledger interface {
	CreateIntent(ctx context.Context, buyerID, productID string) (*service.IntentResult, error)
	VerifyPayment(ctx context.Context, providerOrderID, providerPaymentID, sig string) (*domain.Order, error)
	Refund(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
	GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
	ListMyOrders(ctx context.Context, buyerID string, page, perPage int) ([]domain.Order, int, error)
}

// Access is the entitlement API used by the handlers.
type Access interface {
	Entitled(ctx context.Context, buyerID, productID string) (bool, error)
	DownloadLinks(ctx context.Context, buyerID, productID string) ([]service.DownloadLink, error)
	DownloadLink(ctx context.Context, buyerID, productID, fileType string) (*service.DownloadLink, error)
}

// Reviews is the review API used by the handlers.
type Reviews interface {
	Create(ctx context.Context, input *service.CreateReviewInput) (*domain.Review, error)
	Update(ctx context.Context, actor domain.Actor, reviewID string, input *service.UpdateReviewInput) (*domain.Review, error)
	Delete(ctx context.Context, actor domain.Actor, reviewID string) error
	SetApproval(ctx context.Context, actor domain.Actor, reviewID string, approved bool) (*domain.Review, error)
	ListByProduct(ctx context.Context, productID string, page, perPage int) (*service.ReviewListResult, error)
}

// Ratings is the rating API used by the handlers.
type Ratings interface {
	Recompute(ctx context.Context, productID string) (*domain.ProductRating, error)
}

// Sales is the admin reporting API used by the handlers.
type Sales interface {
	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
	Transactions(ctx context.Context, filter repository.TransactionFilter) (*repository.TransactionPage, error)
}

// actorFrom returns the authenticated caller of r.
func actorFrom(r *http.Request) domain.Actor {
	return domain.Actor{
		UserID: middleware.UserIDFromContext(r.Context()),
		Role:   middleware.RoleFromContext(r.Context()),
	}
}
