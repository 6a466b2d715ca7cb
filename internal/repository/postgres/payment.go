package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
)

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	pool database.DBTX
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool database.DBTX) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create records a payment attempt and sets its ID and creation time.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) (err error) {
	query := `
		INSERT INTO payments (order_id, amount, method, status, provider, provider_ref, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	ctx, end := database.TraceQuery(ctx, "payment.Create", query)
	defer func() { end(err) }()

	err = r.pool.QueryRow(ctx, query,
		p.OrderID, p.Amount, p.Method, p.Status, p.Provider, p.ProviderRef, p.FailureReason,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID int64) (_ []domain.Payment, err error) {
	query := `
		SELECT id, order_id, amount::text, method, status, provider, provider_ref, failure_reason, created_at
		FROM payments
		WHERE order_id = $1
		ORDER BY id`
	ctx, end := database.TraceQuery(ctx, "payment.ListByOrder", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		var (
			p      domain.Payment
			amount string
		)
		if err := rows.Scan(&p.ID, &p.OrderID, &amount, &p.Method, &p.Status,
			&p.Provider, &p.ProviderRef, &p.FailureReason, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.Amount, err = parseMoney(amount); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}
