package event

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	pkgkafka "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/kafka"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type recordingPublisher struct {
	calls []published
	err   error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, published{topic: topic, event: event})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func paidOrder() *domain.Order {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Order{
		ID:                "ord-1",
		BuyerID:           "buyer-1",
		ProductID:         "prod-1",
		ProviderOrderID:   "order_abc",
		ProviderPaymentID: "pay_123",
		Signature:         "deadbeef",
		Amount:            49900,
		Currency:          domain.DefaultCurrency,
		Status:            domain.OrderStatusPaid,
		PurchasedAt:       &at,
	}
}

func TestPublishOrderPaid(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, testLogger())

	ctx := logger.WithCorrelationID(context.Background(), "corr-42")
	ctx = logger.WithPrincipal(ctx, "admin-7", "admin")
	require.NoError(t, p.PublishOrderPaid(ctx, paidOrder()))

	require.Len(t, pub.calls, 1)
	call := pub.calls[0]
	assert.Equal(t, TopicOrderPaid, call.topic)
	assert.Equal(t, TopicOrderPaid, call.event.EventType)
	assert.Equal(t, "ord-1", call.event.AggregateID)
	assert.Equal(t, AggregateTypeOrder, call.event.AggregateType)
	assert.Equal(t, SourceMarketplace, call.event.Source)
	assert.Equal(t, "corr-42", call.event.CorrelationID)
	assert.Equal(t, "admin-7", call.event.Metadata["actor_id"])

	var data OrderStatusData
	require.NoError(t, call.event.UnmarshalData(&data))
	assert.Equal(t, "buyer-1", data.BuyerID)
	assert.Equal(t, "prod-1", data.ProductID)
	assert.Equal(t, int64(49900), data.Amount)
	assert.Equal(t, domain.OrderStatusPaid, data.Status)
	assert.NotContains(t, string(call.event.Data), "deadbeef")
}

func TestPublishOrderFailedAndRefunded_UseTheirTopics(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, testLogger())
	o := paidOrder()

	require.NoError(t, p.PublishOrderFailed(context.Background(), o))
	require.NoError(t, p.PublishOrderRefunded(context.Background(), o))

	require.Len(t, pub.calls, 2)
	assert.Equal(t, TopicOrderFailed, pub.calls[0].topic)
	assert.Equal(t, TopicOrderRefunded, pub.calls[1].topic)
}

func TestPublishReviewChanged(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, testLogger())
	r := &domain.Review{ID: "rev-1", ProductID: "prod-1", BuyerID: "buyer-1", Rating: 4, Approved: true}

	require.NoError(t, p.PublishReviewChanged(context.Background(), r, ReviewUpdated))

	require.Len(t, pub.calls, 1)
	assert.Equal(t, TopicReviewChanged, pub.calls[0].topic)
	assert.Empty(t, pub.calls[0].event.CorrelationID)
	assert.Nil(t, pub.calls[0].event.Metadata)

	var data ReviewChangedData
	require.NoError(t, pub.calls[0].event.UnmarshalData(&data))
	assert.Equal(t, ReviewUpdated, data.Action)
	assert.Equal(t, 4, data.Rating)
	assert.True(t, data.Approved)
}

func TestPublishRatingRecomputeRequested(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, testLogger())

	require.NoError(t, p.PublishRatingRecomputeRequested(context.Background(), "prod-9", "recompute failed"))

	require.Len(t, pub.calls, 1)
	assert.Equal(t, TopicRatingRecomputeRequested, pub.calls[0].topic)
	assert.Equal(t, AggregateTypeProduct, pub.calls[0].event.AggregateType)

	var data RatingRecomputeData
	require.NoError(t, pub.calls[0].event.UnmarshalData(&data))
	assert.Equal(t, "prod-9", data.ProductID)
}

func TestPublish_WrapsKafkaError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker unavailable")}
	p := NewProducer(pub, testLogger())

	err := p.PublishOrderPaid(context.Background(), paidOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish projectverse.order.paid event")
	assert.Contains(t, err.Error(), "broker unavailable")
}
