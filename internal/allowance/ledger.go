// Package allowance is the per-member monthly gram ledger. It exposes only
// bounded, atomic increments and decrements; callers never read-then-write
// the counter themselves.
package allowance

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/domain"
)

// Store holds one counter per member. AddAllowance applies delta in a single
// atomic step and refuses to take the counter below zero; in that case it
// returns the untouched current value and ok=false. Unknown members yield
// domain.ErrMemberNotFound.
type Store interface {
	Allowance(ctx context.Context, memberID string) (decimal.Decimal, error)
	AddAllowance(ctx context.Context, memberID string, delta decimal.Decimal) (remaining decimal.Decimal, ok bool, err error)
}

type Ledger struct {
	store Store
}

func NewLedger(s Store) *Ledger { return &Ledger{store: s} }

func (l *Ledger) Remaining(ctx context.Context, memberID string) (decimal.Decimal, error) {
	return l.store.Allowance(ctx, memberID)
}

// Decrement takes amount off the member's remaining allowance.
func (l *Ledger) Decrement(ctx context.Context, memberID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() || !domain.ExactGrams(amount) {
		return decimal.Zero, &domain.QuantityError{Requested: amount}
	}
	rem, ok, err := l.store.AddAllowance(ctx, memberID, amount.Neg())
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return rem, &domain.InsufficientAllowanceError{MemberID: memberID, Remaining: rem, Requested: amount}
	}
	return rem, nil
}

// Increment credits amount back to the member. No ceiling is enforced.
func (l *Ledger) Increment(ctx context.Context, memberID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() || !domain.ExactGrams(amount) {
		return decimal.Zero, &domain.QuantityError{Requested: amount}
	}
	rem, _, err := l.store.AddAllowance(ctx, memberID, amount)
	return rem, err
}
