package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
)

// RatingService maintains the rating aggregate of products.
type RatingService struct {
	repo    repository.RatingRepository
	retries RatingRetryPublisher
	logger  *slog.Logger
}

// NewRatingService creates a new rating service. retries may be nil.
func NewRatingService(repo repository.RatingRepository, retries RatingRetryPublisher, logger *slog.Logger) *RatingService {
	return &RatingService{
		repo:    repo,
		retries: retries,
		logger:  logger,
	}
}

// Recompute rewrites the product's rating and total_ratings from its
// approved reviews.
func (s *RatingService) Recompute(ctx context.Context, productID string) (*domain.ProductRating, error) {
	agg, err := s.repo.Recompute(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("recompute rating: %w", err)
	}

	s.logger.InfoContext(ctx, "product rating recomputed",
		slog.String("product_id", productID),
		slog.Float64("rating", agg.Rating),
		slog.Int("total_ratings", agg.TotalRatings),
	)
	return agg, nil
}

// Refresh recomputes the aggregate after a review mutation. It runs on a
// context detached from the caller's cancellation and never fails the
// caller: on error the product is flagged stale and a retry event is
// published.
func (s *RatingService) Refresh(ctx context.Context, productID string) {
	rctx, cancel := afterCommit(ctx)
	defer cancel()

	if _, err := s.Recompute(rctx, productID); err != nil {
		ratingRecomputeFailures.Inc()
		s.logger.ErrorContext(ctx, "rating recompute failed, queueing retry",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		s.flagForRetry(ctx, productID, err)
	}
}

// flagForRetry records the failed recompute twice: durably on the product
// row, which the stale sweep picks up, and as a Kafka event for a prompt
// retry.
func (s *RatingService) flagForRetry(ctx context.Context, productID string, cause error) {
	ctx, cancel := afterCommit(ctx)
	defer cancel()

	if err := s.repo.MarkStale(ctx, productID); err != nil {
		s.logger.ErrorContext(ctx, "failed to flag rating as stale",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
	if s.retries == nil {
		return
	}
	if err := s.retries.PublishRatingRecomputeRequested(ctx, productID, cause.Error()); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish rating.recompute_requested event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}

// SweepStale recomputes up to limit products flagged stale and returns how
// many were brought up to date. A product that fails again stays flagged.
func (s *RatingService) SweepStale(ctx context.Context, limit int) (int, error) {
	ids, err := s.repo.ListStale(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list stale ratings: %w", err)
	}

	recomputed := 0
	for _, id := range ids {
		if _, err := s.Recompute(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "stale rating recompute failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		recomputed++
	}
	return recomputed, nil
}
