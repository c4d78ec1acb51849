package strains_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/members"
	"github.com/ariefcatur/club-portal/internal/memstore"
	"github.com/ariefcatur/club-portal/internal/orders"
	"github.com/ariefcatur/club-portal/internal/strains"
)

var (
	staff  = domain.Actor{ID: "s-1", Role: domain.RoleStaff}
	member = domain.Actor{ID: "m-1", Role: domain.RoleMember}
)

func ptr[T any](v T) *T { return &v }

func TestCatalogue(t *testing.T) {
	st := memstore.New()
	svc := strains.NewService(st)
	ctx := context.Background()

	shown, err := svc.Create(ctx, staff, strains.Strain{Name: " Amnesia ", Type: strains.TypeSativa, StockGrams: domain.Grams(50), IsVisible: true})
	require.NoError(t, err)
	assert.Equal(t, "Amnesia", shown.Name)
	hidden, err := svc.Create(ctx, staff, strains.Strain{Name: "Bubba", Type: strains.TypeIndica})
	require.NoError(t, err)

	list, err := svc.List(ctx, member)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, shown.ID, list[0].ID)

	list, err = svc.List(ctx, staff)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.Get(ctx, member, hidden.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = svc.Get(ctx, staff, hidden.ID)
	require.NoError(t, err)

	_, err = svc.Create(ctx, member, strains.Strain{Name: "X", Type: strains.TypeHybrid})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCreate_Validation(t *testing.T) {
	svc := strains.NewService(memstore.New())
	ctx := context.Background()

	for name, in := range map[string]strains.Strain{
		"no name":         {Type: strains.TypeHybrid},
		"bad type":        {Name: "X", Type: "ruderalis"},
		"thc over 100":    {Name: "X", Type: strains.TypeHybrid, THCPercent: decimal.NewFromInt(101)},
		"negative stock":  {Name: "X", Type: strains.TypeHybrid, StockGrams: domain.Grams(-1)},
		"negative price":  {Name: "X", Type: strains.TypeHybrid, PricePerGram: domain.Grams(-1)},
		"stock precision": {Name: "X", Type: strains.TypeHybrid, StockGrams: domain.Grams(1.005)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, staff, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestUpdate_Partial(t *testing.T) {
	st := memstore.New()
	svc := strains.NewService(st)
	ctx := context.Background()

	s, err := svc.Create(ctx, staff, strains.Strain{Name: "Haze", Type: strains.TypeSativa, StockGrams: domain.Grams(10), Description: "citrus"})
	require.NoError(t, err)

	up, err := svc.Update(ctx, staff, s.ID, strains.Patch{IsVisible: ptr(true), StockGrams: ptr(domain.Grams(25))})
	require.NoError(t, err)
	assert.True(t, up.IsVisible)
	assert.True(t, up.StockGrams.Equal(domain.Grams(25)))
	assert.Equal(t, "citrus", up.Description)
	assert.Equal(t, "Haze", up.Name)

	_, err = svc.Update(ctx, staff, s.ID, strains.Patch{StockGrams: ptr(domain.Grams(-3))})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Update(ctx, staff, s.ID, strains.Patch{Name: ptr("  ")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Update(ctx, staff, "missing", strains.Patch{IsVisible: ptr(false)})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestDelete_RefusedWhileOrdered(t *testing.T) {
	st := memstore.New()
	svc := strains.NewService(st)
	ctx := context.Background()

	s, err := svc.Create(ctx, staff, strains.Strain{Name: "Haze", Type: strains.TypeSativa, StockGrams: domain.Grams(10), IsVisible: true})
	require.NoError(t, err)
	st.PutMember(members.Member{ID: "m-1", Email: "m@club.test", FullName: "M", Role: domain.RoleMember, Remaining: domain.Grams(30)})
	_, err = orders.NewService(st, true).PlaceOrder(ctx, "m-1", s.ID, domain.Grams(1))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, staff, s.ID), domain.ErrConflict)

	unused, err := svc.Create(ctx, staff, strains.Strain{Name: "Kush", Type: strains.TypeIndica})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, staff, unused.ID))
	_, err = svc.Get(ctx, staff, unused.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
