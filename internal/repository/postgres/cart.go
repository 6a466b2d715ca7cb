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

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	pool database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

// LockCustomer takes a transaction-scoped advisory lock keyed by the
// customer ID. It is a no-op guarantee outside a transaction.
func (r *CartRepository) LockCustomer(ctx context.Context, customerID int64) (err error) {
	query := `SELECT pg_advisory_xact_lock($1)`
	ctx, end := database.TraceQuery(ctx, "cart.LockCustomer", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, customerID); err != nil {
		return fmt.Errorf("lock customer %d: %w", customerID, err)
	}
	return nil
}

// FindActive loads the ACTIVE cart of customerID and its lines.
func (r *CartRepository) FindActive(ctx context.Context, customerID int64) (_ *domain.Cart, err error) {
	query := `
		SELECT id, customer_id, status, created_at
		FROM carts
		WHERE customer_id = $1 AND status = 'ACTIVE'`
	ctx, end := database.TraceQuery(ctx, "cart.FindActive", query)
	defer func() { end(err) }()

	var c domain.Cart
	err = r.pool.QueryRow(ctx, query, customerID).Scan(&c.ID, &c.CustomerID, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("cart for customer", customerID)
		}
		return nil, fmt.Errorf("get active cart: %w", err)
	}

	lines, err := r.lines(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Lines = lines
	return &c, nil
}

func (r *CartRepository) lines(ctx context.Context, cartID int64) ([]domain.CartLine, error) {
	query := `
		SELECT id, cart_id, product_id, quantity
		FROM cart_lines
		WHERE cart_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ID, &l.CartID, &l.ProductID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}

// GetOrCreateActive inserts an empty cart unless one is already ACTIVE and
// then loads it. The partial unique index on carts makes concurrent calls
// converge on a single row.
func (r *CartRepository) GetOrCreateActive(ctx context.Context, customerID int64) (_ *domain.Cart, err error) {
	query := `
		INSERT INTO carts (customer_id, status)
		VALUES ($1, 'ACTIVE')
		ON CONFLICT (customer_id) WHERE status = 'ACTIVE' DO NOTHING`
	ctx, end := database.TraceQuery(ctx, "cart.GetOrCreateActive", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, customerID); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return r.FindActive(ctx, customerID)
}

// UpsertLine adds quantity to the product's line, creating it if needed.
// A merge that would push the line past domain.MaxLineQuantity updates no
// row and fails with InvalidArgument.
func (r *CartRepository) UpsertLine(ctx context.Context, cartID, productID int64, quantity int) (_ *domain.CartLine, err error) {
	query := `
		INSERT INTO cart_lines (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
		WHERE cart_lines.quantity + EXCLUDED.quantity <= $4
		RETURNING id, quantity`
	ctx, end := database.TraceQuery(ctx, "cart.UpsertLine", query)
	defer func() { end(err) }()

	l := domain.CartLine{CartID: cartID, ProductID: productID}
	err = r.pool.QueryRow(ctx, query, cartID, productID, quantity, domain.MaxLineQuantity).Scan(&l.ID, &l.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.InvalidArgument(fmt.Sprintf("cart line quantity must not exceed %d", domain.MaxLineQuantity))
		}
		if isForeignKeyViolation(err) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("upsert cart line: %w", err)
	}
	return &l, nil
}

func (r *CartRepository) DeleteLine(ctx context.Context, cartID, lineID int64) (err error) {
	query := `DELETE FROM cart_lines WHERE id = $1 AND cart_id = $2`
	ctx, end := database.TraceQuery(ctx, "cart.DeleteLine", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, lineID, cartID)
	if err != nil {
		return fmt.Errorf("delete cart line %d: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("cart line", lineID)
	}
	return nil
}

// MarkOrdered closes the cart. It fails with InvalidState if the cart was
// not ACTIVE.
func (r *CartRepository) MarkOrdered(ctx context.Context, cartID int64) (err error) {
	query := `
		UPDATE carts
		SET status = 'ORDERED', updated_at = NOW()
		WHERE id = $1 AND status = 'ACTIVE'`
	ctx, end := database.TraceQuery(ctx, "cart.MarkOrdered", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, cartID)
	if err != nil {
		return fmt.Errorf("mark cart %d ordered: %w", cartID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.InvalidState("cart is not active")
	}
	return nil
}
