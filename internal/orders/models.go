package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID        string          `json:"id"`
	MemberID  string          `json:"member_id"`
	ProductID string          `json:"strain_id"`
	Quantity  decimal.Decimal `json:"quantity_grams"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MemberState is what placement needs to know about the member, read under lock.
type MemberState struct {
	ID        string
	Remaining decimal.Decimal
}

// ProductState is what placement needs to know about the strain, read under lock.
type ProductState struct {
	ID    string
	Name  string
	Stock decimal.Decimal
}

// Change is the outcome of a status transition.
type Change struct {
	Order     Order           `json:"order"`
	From      Status          `json:"from"`
	Refunded  decimal.Decimal `json:"refunded_grams"`
	Restocked decimal.Decimal `json:"restocked_grams"`
}

type ListFilter struct {
	Status   Status // empty = any
	MemberID string // empty = any
	Limit    int
}
