package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	pkgkafka "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/kafka"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/logger"
)

// Kafka topics owned by the marketplace core.
const (
	TopicOrderPaid                = "projectverse.order.paid"
	TopicOrderFailed              = "projectverse.order.failed"
	TopicOrderRefunded            = "projectverse.order.refunded"
	TopicReviewChanged            = "projectverse.review.changed"
	TopicRatingRecomputeRequested = "projectverse.rating.recompute_requested"
)

// Aggregate type constants.
const (
	AggregateTypeOrder   = "order"
	AggregateTypeReview  = "review"
	AggregateTypeProduct = "product"
)

// SourceMarketplace identifies events originating from this service.
const SourceMarketplace = "projectverse-marketplace"

// Review change actions.
const (
	ReviewCreated   = "created"
	ReviewUpdated   = "updated"
	ReviewDeleted   = "deleted"
	ReviewModerated = "moderated"
)

// OrderStatusData is the payload for order.paid, order.failed and
// order.refunded events. The payment signature is never published.
type OrderStatusData struct {
	OrderID           string     `json:"order_id"`
	BuyerID           string     `json:"buyer_id"`
	ProductID         string     `json:"product_id"`
	ProviderOrderID   string     `json:"provider_order_id"`
	ProviderPaymentID string     `json:"provider_payment_id,omitempty"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	PurchasedAt       *time.Time `json:"purchased_at,omitempty"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`
}

// ReviewChangedData is the payload for a review.changed event.
type ReviewChangedData struct {
	ReviewID  string `json:"review_id"`
	ProductID string `json:"product_id"`
	BuyerID   string `json:"buyer_id"`
	Action    string `json:"action"`
	Rating    int    `json:"rating"`
	Approved  bool   `json:"approved"`
}

// RatingRecomputeData is the payload for a rating.recompute_requested event.
type RatingRecomputeData struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason,omitempty"`
}

// Publisher is the subset of the Kafka producer the event producer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes marketplace domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func orderData(o *domain.Order) OrderStatusData {
	return OrderStatusData{
		OrderID:           o.ID,
		BuyerID:           o.BuyerID,
		ProductID:         o.ProductID,
		ProviderOrderID:   o.ProviderOrderID,
		ProviderPaymentID: o.ProviderPaymentID,
		Amount:            o.Amount,
		Currency:          o.Currency,
		Status:            o.Status,
		PurchasedAt:       o.PurchasedAt,
		RefundedAt:        o.RefundedAt,
	}
}

// PublishOrderPaid publishes an order.paid event.
func (p *Producer) PublishOrderPaid(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderPaid, o.ID, AggregateTypeOrder, orderData(o))
}

// PublishOrderFailed publishes an order.failed event.
func (p *Producer) PublishOrderFailed(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderFailed, o.ID, AggregateTypeOrder, orderData(o))
}

// PublishOrderRefunded publishes an order.refunded event.
func (p *Producer) PublishOrderRefunded(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderRefunded, o.ID, AggregateTypeOrder, orderData(o))
}

// PublishReviewChanged publishes a review.changed event.
func (p *Producer) PublishReviewChanged(ctx context.Context, r *domain.Review, action string) error {
	data := ReviewChangedData{
		ReviewID:  r.ID,
		ProductID: r.ProductID,
		BuyerID:   r.BuyerID,
		Action:    action,
		Rating:    r.Rating,
		Approved:  r.Approved,
	}
	return p.publish(ctx, TopicReviewChanged, r.ID, AggregateTypeReview, data)
}

// PublishRatingRecomputeRequested asks the rating worker to recompute a
// product aggregate.
func (p *Producer) PublishRatingRecomputeRequested(ctx context.Context, productID, reason string) error {
	data := RatingRecomputeData{ProductID: productID, Reason: reason}
	return p.publish(ctx, TopicRatingRecomputeRequested, productID, AggregateTypeProduct, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if actor := logger.UserIDFromContext(ctx); actor != "" {
		event.WithMetadata("actor_id", actor)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
		slog.String("event_id", event.EventID),
	)
	return nil
}
