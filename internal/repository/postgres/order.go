package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const orderColumns = `id, customer_id, status, total_amount::text, created_at, updated_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order header and then each line. Callers run it inside
// Store.WithinTx so the order is written atomically.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	orderQuery := `
		INSERT INTO orders (customer_id, status, total_amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	ctx, end := database.TraceQuery(ctx, "order.Create", orderQuery)
	defer func() { end(err) }()

	err = r.pool.QueryRow(ctx, orderQuery, o.CustomerID, o.Status, o.TotalAmount).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_lines (order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for i := range o.Lines {
		l := &o.Lines[i]
		l.OrderID = o.ID
		if err = r.pool.QueryRow(ctx, lineQuery, o.ID, l.ProductID, l.Quantity, l.PriceAtPurchase).Scan(&l.ID); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o     domain.Order
		total *string
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &total, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	amount, err := parseNullMoney(total)
	if err != nil {
		return nil, err
	}
	o.TotalAmount = amount
	o.Lines = []domain.OrderLine{}
	return &o, nil
}

// GetByID retrieves an order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (_ *domain.Order, err error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "order.GetByID", query)
	defer func() { end(err) }()

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	if err = r.attachLines(ctx, []*domain.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64) (_ []domain.Order, err error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`
	ctx, end := database.TraceQuery(ctx, "order.ListByCustomer", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	if err = r.attachLines(ctx, orders); err != nil {
		return nil, err
	}

	result := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, *o)
	}
	return result, nil
}

// attachLines loads the lines of every order in one query.
func (r *OrderRepository) attachLines(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	query := `
		SELECT id, order_id, product_id, quantity, price_at_purchase::text
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, id`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l     domain.OrderLine
			price string
		)
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &price); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		if l.PriceAtPurchase, err = parseMoney(price); err != nil {
			return err
		}
		if o, ok := byID[l.OrderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	return rows.Err()
}

// UpdateStatus sets the order status and returns the updated order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (_ *domain.Order, err error) {
	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`
	spanCtx, end := database.TraceQuery(ctx, "order.UpdateStatus", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(spanCtx, query, id, status)
	if err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("order", id)
	}
	return r.GetByID(ctx, id)
}
