package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{topic: topic, event: e})
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProducer_PublishOrderCreated(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, discardLogger())

	total := decimal.RequireFromString("24.00")
	o := &domain.Order{
		ID:          100,
		CustomerID:  12,
		Status:      domain.OrderStatusNew,
		TotalAmount: &total,
		Lines:       []domain.OrderLine{{ProductID: 5, Quantity: 4, PriceAtPurchase: decimal.NewFromInt(6)}},
	}

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	require.NoError(t, p.PublishOrderCreated(ctx, o))

	require.Len(t, pub.events, 1)
	got := pub.events[0]
	assert.Equal(t, TopicOrderCreated, got.topic)
	assert.Equal(t, "100", got.event.AggregateID)
	assert.Equal(t, AggregateTypeOrder, got.event.AggregateType)
	assert.Equal(t, "corr-1", got.event.CorrelationID)

	var data OrderCreatedData
	require.NoError(t, got.event.UnmarshalData(&data))
	assert.Equal(t, int64(12), data.CustomerID)
	assert.True(t, data.TotalAmount.Equal(total))
	require.Len(t, data.Lines, 1)
	assert.Equal(t, 4, data.Lines[0].Quantity)
}

func TestProducer_PublishOrderStatusChanged(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, discardLogger())

	o := &domain.Order{ID: 7, CustomerID: 3, Status: domain.OrderStatusCompleted}
	require.NoError(t, p.PublishOrderStatusChanged(context.Background(), o, domain.OrderStatusNew))

	var data OrderStatusChangedData
	require.NoError(t, pub.events[0].event.UnmarshalData(&data))
	assert.Equal(t, "NEW", data.OldStatus)
	assert.Equal(t, "COMPLETED", data.NewStatus)
}

func TestProducer_PublishProductChanged_Deleted(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, discardLogger())

	require.NoError(t, p.PublishProductChanged(context.Background(), 9, ProductDeleted, nil))

	var data ProductChangedData
	require.NoError(t, pub.events[0].event.UnmarshalData(&data))
	assert.Equal(t, ProductDeleted, data.Change)
	assert.Nil(t, data.Price)
}

func TestProducer_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	p := NewProducer(pub, discardLogger())

	err := p.PublishPaymentSucceeded(context.Background(), &domain.Payment{ID: 1, OrderID: 2})
	assert.ErrorContains(t, err, "broker down")
}

func TestProducer_NilIsNoop(t *testing.T) {
	var p *Producer
	assert.NoError(t, p.PublishOrderCreated(context.Background(), &domain.Order{ID: 1}))

	p = NewProducer(nil, discardLogger())
	assert.NoError(t, p.PublishProductChanged(context.Background(), 1, ProductCreated, &domain.Product{ID: 1}))
}
