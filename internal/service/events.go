package service

import (
	"context"
	"time"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
)

// OrderEventPublisher publishes order lifecycle events.
type OrderEventPublisher interface {
	PublishOrderPaid(ctx context.Context, o *domain.Order) error
	PublishOrderFailed(ctx context.Context, o *domain.Order) error
	PublishOrderRefunded(ctx context.Context, o *domain.Order) error
}

// ReviewEventPublisher publishes review change events.
type ReviewEventPublisher interface {
	PublishReviewChanged(ctx context.Context, r *domain.Review, action string) error
}

// RatingRetryPublisher flags a product whose aggregate must be recomputed
// later.
type RatingRetryPublisher interface {
	PublishRatingRecomputeRequested(ctx context.Context, productID, reason string) error
}

// postCommitTimeout bounds the side effects that follow a committed write.
const postCommitTimeout = 10 * time.Second

// afterCommit returns a context for the side effects of a write that has
// already committed. It keeps ctx's values but not its cancellation, so a
// client that disconnects cannot cut them short.
func afterCommit(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
}
