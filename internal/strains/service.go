// Package strains is the product catalogue edited by staff and browsed by
// members.
package strains

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/domain"
)

type Store interface {
	GetStrain(ctx context.Context, id string) (Strain, error)
	ListStrains(ctx context.Context, visibleOnly bool) ([]Strain, error)
	InsertStrain(ctx context.Context, s Strain) error
	// UpdateStrain applies p in a single statement so it never overwrites a
	// concurrent stock decrement it did not ask to change.
	UpdateStrain(ctx context.Context, id string, p Patch, at time.Time) (Strain, error)
	// DeleteStrain fails with domain.ErrConflict while orders reference it.
	DeleteStrain(ctx context.Context, id string) error
}

type Service struct {
	Store Store
	Now   func() time.Time
}

func NewService(s Store) *Service {
	return &Service{Store: s, Now: func() time.Time { return time.Now().UTC() }}
}

var hundred = decimal.NewFromInt(100)

func validate(s Strain) error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return domain.Invalid("name is required")
	case !s.Type.Valid():
		return domain.Invalid("type must be indica, sativa or hybrid")
	case s.THCPercent.IsNegative() || s.THCPercent.GreaterThan(hundred):
		return domain.Invalid("thc_percent must be between 0 and 100")
	case s.CBDPercent.IsNegative() || s.CBDPercent.GreaterThan(hundred):
		return domain.Invalid("cbd_percent must be between 0 and 100")
	case s.StockGrams.IsNegative():
		return domain.Invalid("stock cannot be negative")
	case s.PricePerGram.IsNegative():
		return domain.Invalid("price cannot be negative")
	case !exact(s.THCPercent, s.CBDPercent, s.StockGrams, s.PricePerGram):
		return domain.Invalid("values cannot have more than %d decimal places", domain.GramsScale)
	}
	return nil
}

func exact(ds ...decimal.Decimal) bool {
	for _, d := range ds {
		if !domain.ExactGrams(d) {
			return false
		}
	}
	return true
}

// List returns the catalogue. Members only ever see visible strains.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]Strain, error) {
	if err := domain.Authorize(actor); err != nil {
		return nil, err
	}
	return s.Store.ListStrains(ctx, !domain.IsStaff(actor.Role))
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (Strain, error) {
	if err := domain.Authorize(actor); err != nil {
		return Strain{}, err
	}
	st, err := s.Store.GetStrain(ctx, id)
	if err != nil {
		return Strain{}, err
	}
	if !st.IsVisible && !domain.IsStaff(actor.Role) {
		return Strain{}, domain.ErrProductNotFound
	}
	return st, nil
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, in Strain) (Strain, error) {
	if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
		return Strain{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(in); err != nil {
		return Strain{}, err
	}
	now := s.Now()
	in.ID = uuid.NewString()
	in.CreatedAt = now
	in.UpdatedAt = now
	if err := s.Store.InsertStrain(ctx, in); err != nil {
		return Strain{}, err
	}
	return in, nil
}

func (s *Service) Update(ctx context.Context, actor domain.Actor, id string, p Patch) (Strain, error) {
	if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
		return Strain{}, err
	}
	// Validate the fields being set; unset fields were valid when stored.
	probe := p.Apply(Strain{Name: "-", Type: TypeHybrid})
	if err := validate(probe); err != nil {
		return Strain{}, err
	}
	return s.Store.UpdateStrain(ctx, id, p, s.Now())
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
		return err
	}
	return s.Store.DeleteStrain(ctx, id)
}
