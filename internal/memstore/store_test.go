package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/members"
	"github.com/ariefcatur/club-portal/internal/orders"
	"github.com/ariefcatur/club-portal/internal/strains"
)

func TestWithTx_DiscardsOnError(t *testing.T) {
	st := New()
	st.PutMember(members.Member{ID: "m", Remaining: domain.Grams(10)})
	st.PutStrain(strains.Strain{ID: "p", StockGrams: domain.Grams(10)})
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.WithTx(ctx, func(tx orders.Tx) error {
		_, ok, err := tx.AddAllowance(ctx, "m", domain.Grams(-4))
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, tx.InsertOrder(ctx, orders.Order{ID: "o", MemberID: "m", ProductID: "p", Quantity: domain.Grams(4)}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	rem, err := st.Allowance(ctx, "m")
	require.NoError(t, err)
	assert.True(t, rem.Equal(domain.Grams(10)))
	_, err = st.GetOrder(ctx, "o")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCounters_NeverNegative(t *testing.T) {
	st := New()
	st.PutStrain(strains.Strain{ID: "p", StockGrams: domain.Grams(3)})
	ctx := context.Background()

	stock, ok, err := st.AddStock(ctx, "p", domain.Grams(-4))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, stock.Equal(domain.Grams(3)))

	_, _, err = st.AddAllowance(ctx, "ghost", domain.Grams(1))
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestDeleteMember_Cascades(t *testing.T) {
	st := New()
	st.PutMember(members.Member{ID: "m", Remaining: domain.Grams(10)})
	st.PutMember(members.Member{ID: "s", Role: domain.RoleStaff})
	st.PutStrain(strains.Strain{ID: "p", StockGrams: domain.Grams(10)})
	ctx := context.Background()

	require.NoError(t, st.WithTx(ctx, func(tx orders.Tx) error {
		return tx.InsertOrder(ctx, orders.Order{ID: "o", MemberID: "m", ProductID: "p", Quantity: domain.Grams(1)})
	}))
	require.NoError(t, st.DeleteMember(ctx, "m"))

	_, err := st.GetOrder(ctx, "o")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.NoError(t, st.DeleteStrain(ctx, "p"))
}
