package postgres

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/pkg/database"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

// money matches a decimal.Decimal (or *decimal.Decimal) argument by value,
// so 10 and 10.00 compare equal.
type money string

func (m money) Match(v any) bool {
	want := decimal.RequireFromString(string(m))
	switch got := v.(type) {
	case decimal.Decimal:
		return got.Equal(want)
	case *decimal.Decimal:
		return got != nil && got.Equal(want)
	}
	return false
}

func strPtr(s string) *string { return &s }
