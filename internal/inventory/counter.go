// Package inventory tracks grams of stock per product (strain).
package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/domain"
)

// Store holds one stock counter per product. AddStock applies delta atomically
// and refuses to go below zero, returning the current value with ok=false.
// Unknown products yield domain.ErrProductNotFound.
type Store interface {
	Stock(ctx context.Context, productID string) (decimal.Decimal, error)
	AddStock(ctx context.Context, productID string, delta decimal.Decimal) (remaining decimal.Decimal, ok bool, err error)
}

type Counter struct {
	store Store
}

func NewCounter(s Store) *Counter { return &Counter{store: s} }

func (c *Counter) Stock(ctx context.Context, productID string) (decimal.Decimal, error) {
	return c.store.Stock(ctx, productID)
}

func (c *Counter) Decrement(ctx context.Context, productID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() || !domain.ExactGrams(amount) {
		return decimal.Zero, &domain.QuantityError{Requested: amount}
	}
	rem, ok, err := c.store.AddStock(ctx, productID, amount.Neg())
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return rem, &domain.StockError{ProductID: productID, Requested: amount, Available: rem}
	}
	return rem, nil
}

// Increment puts grams back on the shelf: cancelled orders and staff restocks.
func (c *Counter) Increment(ctx context.Context, productID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() || !domain.ExactGrams(amount) {
		return decimal.Zero, &domain.QuantityError{Requested: amount}
	}
	rem, _, err := c.store.AddStock(ctx, productID, amount)
	return rem, err
}
