package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var (
	orderCols     = []string{"id", "customer_id", "status", "total_amount", "created_at", "updated_at"}
	orderLineCols = []string{"id", "order_id", "product_id", "quantity", "price_at_purchase"}
)

func TestOrderRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	now := time.Now().UTC()

	total := decimal.RequireFromString("30.00")
	o := &domain.Order{
		CustomerID:  12,
		Status:      domain.OrderStatusNew,
		TotalAmount: &total,
		Lines: []domain.OrderLine{
			{ProductID: 1, Quantity: 5, PriceAtPurchase: decimal.RequireFromString("6.00")},
		},
	}

	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(int64(12), domain.OrderStatusNew, money("30")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(100), now, now))
	mock.ExpectQuery("INSERT INTO order_lines").
		WithArgs(int64(100), int64(1), 5, money("6")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1000)))

	require.NoError(t, repo.Create(context.Background(), o))
	assert.Equal(t, int64(100), o.ID)
	assert.Equal(t, int64(100), o.Lines[0].OrderID)
	assert.Equal(t, int64(1000), o.Lines[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM orders WHERE id").WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow(int64(100), int64(12), domain.OrderStatusNew, strPtr("30.00"), now, now))
	mock.ExpectQuery("FROM order_lines").WithArgs([]int64{100}).
		WillReturnRows(pgxmock.NewRows(orderLineCols).
			AddRow(int64(1000), int64(100), int64(1), 5, "6.00"))

	o, err := repo.GetByID(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, o.TotalAmount)
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(30)))
	require.Len(t, o.Lines, 1)
	assert.True(t, o.Lines[0].PriceAtPurchase.Equal(decimal.NewFromInt(6)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NullTotal(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM orders WHERE id").WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow(int64(5), int64(1), domain.OrderStatusNew, (*string)(nil), now, now))
	mock.ExpectQuery("FROM order_lines").WithArgs([]int64{5}).
		WillReturnRows(pgxmock.NewRows(orderLineCols))

	o, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, o.TotalAmount)
	assert.Empty(t, o.Lines)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders WHERE id").WithArgs(int64(1)).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListByCustomer_GroupsLines(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("WHERE customer_id = \\$1 ORDER BY created_at DESC").WithArgs(int64(12)).
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow(int64(2), int64(12), domain.OrderStatusProcessing, strPtr("5.00"), now, now).
			AddRow(int64(1), int64(12), domain.OrderStatusNew, strPtr("30.00"), now, now))
	mock.ExpectQuery("FROM order_lines").WithArgs([]int64{2, 1}).
		WillReturnRows(pgxmock.NewRows(orderLineCols).
			AddRow(int64(10), int64(1), int64(1), 5, "6.00").
			AddRow(int64(20), int64(2), int64(3), 1, "5.00"))

	orders, err := repo.ListByCustomer(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(2), orders[0].ID)
	require.Len(t, orders[0].Lines, 1)
	assert.Equal(t, int64(20), orders[0].Lines[0].ID)
	require.Len(t, orders[1].Lines, 1)
	assert.Equal(t, int64(10), orders[1].Lines[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(int64(100), domain.OrderStatusCompleted).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("FROM orders WHERE id").WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow(int64(100), int64(12), domain.OrderStatusCompleted, strPtr("30.00"), now, now))
	mock.ExpectQuery("FROM order_lines").WithArgs([]int64{100}).
		WillReturnRows(pgxmock.NewRows(orderLineCols))

	o, err := repo.UpdateStatus(context.Background(), 100, domain.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, o.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(int64(404), domain.OrderStatusCancelled).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := repo.UpdateStatus(context.Background(), 404, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
