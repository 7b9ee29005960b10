package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/event"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

// EntitlementChecker answers whether a buyer owns a product.
type EntitlementChecker interface {
	Entitled(ctx context.Context, buyerID, productID string) (bool, error)
}

// RatingRefresher recomputes a product aggregate without failing the caller.
type RatingRefresher interface {
	Refresh(ctx context.Context, productID string)
}

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	BuyerID   string
	ProductID string
	Rating    int
	Comment   string
}

// UpdateReviewInput holds the fields of a review to change. Nil fields are
// left as they are.
type UpdateReviewInput struct {
	Rating  *int
	Comment *string
}

// ReviewListResult is one page of approved reviews plus the product
// aggregate.
type ReviewListResult struct {
	Reviews      []domain.Review
	TotalCount   int
	Rating       float64
	TotalRatings int
}

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	access   EntitlementChecker
	rating   RatingRefresher
	events   ReviewEventPublisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	products repository.ProductRepository,
	access EntitlementChecker,
	rating RatingRefresher,
	events ReviewEventPublisher,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		access:   access,
		rating:   rating,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a buyer's review of a product they own. A second review of
// the same product by the same buyer is rejected by the store.
func (s *ReviewService) Create(ctx context.Context, input *CreateReviewInput) (*domain.Review, error) {
	if input.BuyerID == "" || input.ProductID == "" {
		return nil, apperrors.InvalidInput("buyer and product are required")
	}
	if err := domain.ValidateRating(input.Rating); err != nil {
		return nil, err
	}
	if err := domain.ValidateComment(input.Comment); err != nil {
		return nil, err
	}

	entitled, err := s.access.Entitled(ctx, input.BuyerID, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("check entitlement: %w", err)
	}
	if !entitled {
		return nil, apperrors.Forbidden("only buyers of this product can review it")
	}

	now := s.now()
	review := &domain.Review{
		ID:        uuid.New().String(),
		ProductID: input.ProductID,
		BuyerID:   input.BuyerID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		Approved:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.afterMutation(ctx, review, event.ReviewCreated)

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.Int("rating", review.Rating),
	)
	return review, nil
}

// Update changes the rating and/or comment of a review. Only the author or
// an admin may update it. Fields left nil keep their stored value, even
// when another update of the other field commits in between.
func (s *ReviewService) Update(ctx context.Context, actor domain.Actor, reviewID string, input *UpdateReviewInput) (*domain.Review, error) {
	if input.Rating == nil && input.Comment == nil {
		return nil, apperrors.InvalidInput("rating or comment is required")
	}
	if input.Rating != nil {
		if err := domain.ValidateRating(*input.Rating); err != nil {
			return nil, err
		}
	}
	if input.Comment != nil {
		if err := domain.ValidateComment(*input.Comment); err != nil {
			return nil, err
		}
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if !actor.CanModify(review.BuyerID) {
		return nil, apperrors.Forbidden("review belongs to another buyer")
	}

	updated, err := s.reviews.Update(ctx, reviewID, repository.ReviewPatch{
		Rating:    input.Rating,
		Comment:   input.Comment,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.afterMutation(ctx, updated, event.ReviewUpdated)

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", updated.ID),
		slog.String("product_id", updated.ProductID),
	)
	return updated, nil
}

// Delete removes a review. Only the author or an admin may delete it.
func (s *ReviewService) Delete(ctx context.Context, actor domain.Actor, reviewID string) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	if !actor.CanModify(review.BuyerID) {
		return apperrors.Forbidden("review belongs to another buyer")
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.afterMutation(ctx, review, event.ReviewDeleted)

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.Bool("by_admin", actor.IsAdmin()),
	)
	return nil
}

// SetApproval approves or hides a review. Only approved reviews count
// towards the product rating.
func (s *ReviewService) SetApproval(ctx context.Context, actor domain.Actor, reviewID string, approved bool) (*domain.Review, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only admins can moderate reviews")
	}

	review, err := s.reviews.SetApproval(ctx, reviewID, approved)
	if err != nil {
		return nil, fmt.Errorf("set review approval: %w", err)
	}

	s.afterMutation(ctx, review, event.ReviewModerated)

	s.logger.InfoContext(ctx, "review moderated",
		slog.String("review_id", review.ID),
		slog.Bool("approved", approved),
	)
	return review, nil
}

// ListByProduct returns approved reviews of a product, newest first, with
// the product's current aggregate.
func (s *ReviewService) ListByProduct(ctx context.Context, productID string, page, perPage int) (*ReviewListResult, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	reviews, total, err := s.reviews.ListApprovedByProduct(ctx, productID, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	return &ReviewListResult{
		Reviews:      reviews,
		TotalCount:   total,
		Rating:       product.Rating,
		TotalRatings: product.TotalRatings,
	}, nil
}

// afterMutation runs once the review change has committed, so it must
// outlive the request.
func (s *ReviewService) afterMutation(ctx context.Context, review *domain.Review, action string) {
	s.rating.Refresh(ctx, review.ProductID)

	cctx, cancel := afterCommit(ctx)
	defer cancel()

	if err := s.events.PublishReviewChanged(cctx, review, action); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.changed event",
			slog.String("review_id", review.ID),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}
