package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/domain"
)

type Request struct {
	MemberID  string
	ProductID string
	Grams     decimal.Decimal
}

// Approval is a validated request. It carries no side effect by itself.
type Approval struct {
	Request
	Member  MemberState
	Product ProductState
}

// Lookup reads the current member allowance and product stock. Inside a
// transaction both rows stay locked until commit.
type Lookup interface {
	LockMember(ctx context.Context, memberID string) (MemberState, error)
	LockProduct(ctx context.Context, productID string) (ProductState, error)
}

// CheckQuantity applies the request-only rules: positive, storable without
// rounding and within the per-order ceiling.
func CheckQuantity(grams decimal.Decimal) error {
	if !grams.IsPositive() || !domain.ExactGrams(grams) {
		return &domain.QuantityError{Requested: grams}
	}
	if grams.GreaterThan(domain.MaxOrderGrams) {
		return &domain.CeilingError{Requested: grams, Ceiling: domain.MaxOrderGrams}
	}
	return nil
}

// Validate decides whether req may become an order against the state read
// through l immediately before.
func Validate(ctx context.Context, l Lookup, req Request) (Approval, error) {
	if err := CheckQuantity(req.Grams); err != nil {
		return Approval{}, err
	}
	m, err := l.LockMember(ctx, req.MemberID)
	if err != nil {
		return Approval{}, err
	}
	p, err := l.LockProduct(ctx, req.ProductID)
	if err != nil {
		return Approval{}, err
	}
	if req.Grams.GreaterThan(m.Remaining) {
		return Approval{}, &domain.AllowanceError{Requested: req.Grams, Remaining: m.Remaining}
	}
	if req.Grams.GreaterThan(p.Stock) {
		return Approval{}, &domain.StockError{ProductID: p.ID, Name: p.Name, Requested: req.Grams, Available: p.Stock}
	}
	return Approval{Request: req, Member: m, Product: p}, nil
}

// Limit is the largest quantity a member could order right now. It is a UI
// hint only; Validate stays authoritative.
func Limit(remaining, stock decimal.Decimal) decimal.Decimal {
	l := decimal.Min(domain.MaxOrderGrams, remaining, stock)
	if l.IsNegative() {
		return decimal.Zero
	}
	return l
}
