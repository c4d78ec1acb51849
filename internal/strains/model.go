package strains

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeIndica Type = "indica"
	TypeSativa Type = "sativa"
	TypeHybrid Type = "hybrid"
)

func (t Type) Valid() bool {
	return t == TypeIndica || t == TypeSativa || t == TypeHybrid
}

type Strain struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         Type            `json:"type"`
	THCPercent   decimal.Decimal `json:"thc_percent"`
	CBDPercent   decimal.Decimal `json:"cbd_percent"`
	StockGrams   decimal.Decimal `json:"stock_grams"`
	PricePerGram decimal.Decimal `json:"price_per_gram"`
	Description  string          `json:"description"`
	ImageURL     string          `json:"image_url"`
	IsVisible    bool            `json:"is_visible"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Patch is a partial update; nil fields are left alone.
type Patch struct {
	Name         *string          `json:"name,omitempty"`
	Type         *Type            `json:"type,omitempty"`
	THCPercent   *decimal.Decimal `json:"thc_percent,omitempty"`
	CBDPercent   *decimal.Decimal `json:"cbd_percent,omitempty"`
	StockGrams   *decimal.Decimal `json:"stock_grams,omitempty"`
	PricePerGram *decimal.Decimal `json:"price_per_gram,omitempty"`
	Description  *string          `json:"description,omitempty"`
	ImageURL     *string          `json:"image_url,omitempty"`
	IsVisible    *bool            `json:"is_visible,omitempty"`
}

// Apply returns s with the patch laid over it.
func (p Patch) Apply(s Strain) Strain {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.THCPercent != nil {
		s.THCPercent = *p.THCPercent
	}
	if p.CBDPercent != nil {
		s.CBDPercent = *p.CBDPercent
	}
	if p.StockGrams != nil {
		s.StockGrams = *p.StockGrams
	}
	if p.PricePerGram != nil {
		s.PricePerGram = *p.PricePerGram
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.ImageURL != nil {
		s.ImageURL = *p.ImageURL
	}
	if p.IsVisible != nil {
		s.IsVisible = *p.IsVisible
	}
	return s
}
