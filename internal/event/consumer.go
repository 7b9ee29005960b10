package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	pkgkafka "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/kafka"
)

// RatingRecomputer defines the interface required by the rating consumer.
type RatingRecomputer interface {
	Recompute(ctx context.Context, productID string) (*domain.ProductRating, error)
}

// Consumer processes incoming Kafka events for the marketplace core.
type Consumer struct {
	logger *slog.Logger
	rating RatingRecomputer
}

// NewConsumer creates a new event consumer.
func NewConsumer(rating RatingRecomputer, logger *slog.Logger) *Consumer {
	return &Consumer{
		rating: rating,
		logger: logger,
	}
}

// HandleRatingRecomputeRequested recomputes the aggregate named by a
// rating.recompute_requested event. A returned error makes the Kafka
// consumer retry and eventually dead-letter the event.
func (c *Consumer) HandleRatingRecomputeRequested(ctx context.Context, event *pkgkafka.Event) error {
	var data RatingRecomputeData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal rating.recompute_requested data: %w", err)
	}
	if data.ProductID == "" {
		c.logger.WarnContext(ctx, "rating recompute request without product id, skipping",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	agg, err := c.rating.Recompute(ctx, data.ProductID)
	if err != nil {
		return fmt.Errorf("recompute rating for product %s: %w", data.ProductID, err)
	}

	c.logger.InfoContext(ctx, "product rating recomputed from retry request",
		slog.String("product_id", agg.ProductID),
		slog.Float64("rating", agg.Rating),
		slog.Int("total_ratings", agg.TotalRatings),
	)
	return nil
}
