package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	CategoryID  int64
}

// Category groups products.
type Category struct {
	ID   int64
	Name string
}
