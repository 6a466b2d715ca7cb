package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topic constants for storefront domain events.
const (
	TopicOrderCreated       = "storefront.order.created"
	TopicOrderStatusChanged = "storefront.order.status_changed"
	TopicPaymentSucceeded   = "storefront.payment.succeeded"
	TopicProductChanged     = "storefront.product.changed"
)

// Aggregate type constants.
const (
	AggregateTypeOrder   = "order"
	AggregateTypePayment = "payment"
	AggregateTypeProduct = "product"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

// Product change kinds.
const (
	ProductCreated = "created"
	ProductUpdated = "updated"
	ProductDeleted = "deleted"
)

// OrderLineData is one line of an order.created payload.
type OrderLineData struct {
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID     int64           `json:"order_id"`
	CustomerID  int64           `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []OrderLineData `json:"lines"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID    int64  `json:"order_id"`
	CustomerID int64  `json:"customer_id"`
	OldStatus  string `json:"old_status"`
	NewStatus  string `json:"new_status"`
}

// PaymentSucceededData is the payload for a payment.succeeded event.
type PaymentSucceededData struct {
	PaymentID     int64           `json:"payment_id"`
	OrderID       int64           `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	ProviderName  string          `json:"provider_name"`
	ProviderPayID string          `json:"provider_payment_id"`
}

// ProductChangedData is the payload for a product.changed event.
type ProductChangedData struct {
	ProductID  int64            `json:"product_id"`
	Change     string           `json:"change"`
	Name       string           `json:"name,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	CategoryID int64            `json:"category_id,omitempty"`
}

// Publisher is the part of *pkgkafka.Producer the event producer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events. A nil *Producer, or one
// built without a publisher, silently drops events.
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

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, o *domain.Order) error {
	lines := make([]OrderLineData, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineData{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.PriceAtPurchase,
		})
	}
	data := OrderCreatedData{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		TotalAmount: o.AmountDue(),
		Lines:       lines,
	}
	return p.publish(ctx, TopicOrderCreated, o.ID, AggregateTypeOrder, data)
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, o *domain.Order, old domain.OrderStatus) error {
	data := OrderStatusChangedData{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		OldStatus:  string(old),
		NewStatus:  string(o.Status),
	}
	return p.publish(ctx, TopicOrderStatusChanged, o.ID, AggregateTypeOrder, data)
}

// PublishPaymentSucceeded publishes a payment.succeeded event.
func (p *Producer) PublishPaymentSucceeded(ctx context.Context, pay *domain.Payment) error {
	data := PaymentSucceededData{
		PaymentID:     pay.ID,
		OrderID:       pay.OrderID,
		Amount:        pay.Amount,
		Method:        pay.Method,
		ProviderName:  pay.Provider,
		ProviderPayID: pay.ProviderRef,
	}
	return p.publish(ctx, TopicPaymentSucceeded, pay.ID, AggregateTypePayment, data)
}

// PublishProductChanged publishes a product.changed event. prod is nil for
// deletions.
func (p *Producer) PublishProductChanged(ctx context.Context, productID int64, change string, prod *domain.Product) error {
	data := ProductChangedData{ProductID: productID, Change: change}
	if prod != nil {
		price := prod.Price
		data.Name = prod.Name
		data.Price = &price
		data.CategoryID = prod.CategoryID
	}
	return p.publish(ctx, TopicProductChanged, productID, AggregateTypeProduct, data)
}

func (p *Producer) publish(ctx context.Context, topic string, aggregateID int64, aggregateType string, data any) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	id := strconv.FormatInt(aggregateID, 10)
	evt, err := pkgkafka.NewEvent(topic, id, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", id),
	)
	return nil
}
