package memstore

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/orders"
)

func (st *state) allowance(memberID string) (decimal.Decimal, error) {
	m, ok := st.members[memberID]
	if !ok {
		return decimal.Zero, domain.ErrMemberNotFound
	}
	return m.Remaining, nil
}

func (st *state) addAllowance(memberID string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	m, ok := st.members[memberID]
	if !ok {
		return decimal.Zero, false, domain.ErrMemberNotFound
	}
	next := m.Remaining.Add(delta)
	if next.IsNegative() {
		return m.Remaining, false, nil
	}
	m.Remaining = next
	st.members[memberID] = m
	return next, true, nil
}

func (st *state) stock(productID string) (decimal.Decimal, error) {
	p, ok := st.strains[productID]
	if !ok {
		return decimal.Zero, domain.ErrProductNotFound
	}
	return p.StockGrams, nil
}

func (st *state) addStock(productID string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	p, ok := st.strains[productID]
	if !ok {
		return decimal.Zero, false, domain.ErrProductNotFound
	}
	next := p.StockGrams.Add(delta)
	if next.IsNegative() {
		return p.StockGrams, false, nil
	}
	p.StockGrams = next
	st.strains[productID] = p
	return next, true, nil
}

func (s *Store) Allowance(_ context.Context, memberID string) (rem decimal.Decimal, err error) {
	s.read(func(st *state) { rem, err = st.allowance(memberID) })
	return
}

func (s *Store) AddAllowance(_ context.Context, memberID string, delta decimal.Decimal) (rem decimal.Decimal, ok bool, err error) {
	s.read(func(st *state) { rem, ok, err = st.addAllowance(memberID, delta) })
	return
}

func (s *Store) Stock(_ context.Context, productID string) (stock decimal.Decimal, err error) {
	s.read(func(st *state) { stock, err = st.stock(productID) })
	return
}

func (s *Store) AddStock(_ context.Context, productID string, delta decimal.Decimal) (stock decimal.Decimal, ok bool, err error) {
	s.read(func(st *state) { stock, ok, err = st.addStock(productID, delta) })
	return
}

func (s *Store) GetOrder(_ context.Context, orderID string) (o orders.Order, err error) {
	s.read(func(st *state) {
		var ok bool
		if o, ok = st.orders[orderID]; !ok {
			err = domain.ErrOrderNotFound
		}
	})
	return
}

func (s *Store) ListOrders(_ context.Context, f orders.ListFilter) ([]orders.Order, error) {
	var out []orders.Order
	s.read(func(st *state) {
		for _, o := range st.orders {
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			if f.MemberID != "" && o.MemberID != f.MemberID {
				continue
			}
			out = append(out, o)
		}
	})
	slices.SortFunc(out, func(a, b orders.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CountOrdersByStatus(_ context.Context) (map[orders.Status]int, error) {
	out := make(map[orders.Status]int, len(orders.AllStatuses))
	for _, st := range orders.AllStatuses {
		out[st] = 0
	}
	s.read(func(st *state) {
		for _, o := range st.orders {
			out[o.Status]++
		}
	})
	return out, nil
}

// tx works on a private copy of the state; the Store mutex is held for its
// whole lifetime, which stands in for row locks.
type tx struct {
	st   *state
	fail func(op string) error
}

func (t *tx) check(op string) error {
	if t.fail == nil {
		return nil
	}
	return t.fail(op)
}

func (t *tx) LockMember(_ context.Context, memberID string) (orders.MemberState, error) {
	rem, err := t.st.allowance(memberID)
	if err != nil {
		return orders.MemberState{}, err
	}
	return orders.MemberState{ID: memberID, Remaining: rem}, nil
}

func (t *tx) LockProduct(_ context.Context, productID string) (orders.ProductState, error) {
	p, ok := t.st.strains[productID]
	if !ok {
		return orders.ProductState{}, domain.ErrProductNotFound
	}
	return orders.ProductState{ID: p.ID, Name: p.Name, Stock: p.StockGrams}, nil
}

func (t *tx) Allowance(_ context.Context, memberID string) (decimal.Decimal, error) {
	return t.st.allowance(memberID)
}

func (t *tx) AddAllowance(_ context.Context, memberID string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	if err := t.check("add_allowance"); err != nil {
		return decimal.Zero, false, err
	}
	return t.st.addAllowance(memberID, delta)
}

func (t *tx) Stock(_ context.Context, productID string) (decimal.Decimal, error) {
	return t.st.stock(productID)
}

func (t *tx) AddStock(_ context.Context, productID string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	if err := t.check("add_stock"); err != nil {
		return decimal.Zero, false, err
	}
	return t.st.addStock(productID, delta)
}

func (t *tx) InsertOrder(_ context.Context, o orders.Order) error {
	if err := t.check("insert_order"); err != nil {
		return err
	}
	if _, ok := t.st.members[o.MemberID]; !ok {
		return domain.ErrMemberNotFound
	}
	if _, ok := t.st.strains[o.ProductID]; !ok {
		return domain.ErrProductNotFound
	}
	t.st.orders[o.ID] = o
	return nil
}

func (t *tx) LockOrder(_ context.Context, orderID string) (orders.Order, error) {
	o, ok := t.st.orders[orderID]
	if !ok {
		return orders.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (t *tx) UpdateOrderStatus(_ context.Context, orderID string, s orders.Status, at time.Time) error {
	if err := t.check("update_order_status"); err != nil {
		return err
	}
	o, ok := t.st.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = s
	o.UpdatedAt = at
	t.st.orders[orderID] = o
	return nil
}
