package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/allowance"
	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/inventory"
	"github.com/ariefcatur/club-portal/internal/metrics"
)

// Service is the order register: placement, status changes and the reads
// built on them.
type Service struct {
	Store Store
	// RestockOnCancel puts the order quantity back on the strain's stock
	// when an order is cancelled. The allowance is refunded either way.
	RestockOnCancel bool
	Now             func() time.Time
}

func NewService(s Store, restockOnCancel bool) *Service {
	return &Service{Store: s, RestockOnCancel: restockOnCancel, Now: func() time.Time { return time.Now().UTC() }}
}

// PlaceOrder validates the request against current allowance and stock and,
// in one transaction, inserts the pending order and decrements both counters.
func (s *Service) PlaceOrder(ctx context.Context, memberID, productID string, grams decimal.Decimal) (Order, error) {
	req := Request{MemberID: memberID, ProductID: productID, Grams: grams}
	if err := CheckQuantity(grams); err != nil {
		metrics.OrdersRejected.WithLabelValues(domain.Code(err)).Inc()
		return Order{}, err
	}

	var out Order
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		appr, err := Validate(ctx, tx, req)
		if err != nil {
			return err
		}
		now := s.Now()
		o := Order{
			ID:        uuid.NewString(),
			MemberID:  appr.Member.ID,
			ProductID: appr.Product.ID,
			Quantity:  appr.Grams,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		if _, err := inventory.NewCounter(tx).Decrement(ctx, o.ProductID, o.Quantity); err != nil {
			return err
		}
		if _, err := allowance.NewLedger(tx).Decrement(ctx, o.MemberID, o.Quantity); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		err = domain.TxFailed("place order", err)
		metrics.OrdersRejected.WithLabelValues(domain.Code(err)).Inc()
		return Order{}, err
	}
	metrics.OrdersPlaced.Inc()
	metrics.GramsPlaced.Add(out.Quantity.InexactFloat64())
	return out, nil
}

// SetStatus moves an order along its lifecycle. Cancelling refunds the
// quantity to the member (and, with RestockOnCancel, to the strain) in the
// same transaction as the status write.
func (s *Service) SetStatus(ctx context.Context, actor domain.Actor, orderID string, to Status) (Change, error) {
	if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
		return Change{}, err
	}
	if !to.Valid() {
		return Change{}, domain.Invalid("unknown order status %q", to)
	}

	var ch Change
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, to) {
			return &domain.TransitionError{From: string(o.Status), To: string(to)}
		}
		now := s.Now()
		if err := tx.UpdateOrderStatus(ctx, o.ID, to, now); err != nil {
			return err
		}
		ch = Change{From: o.Status, Refunded: decimal.Zero, Restocked: decimal.Zero}
		if to == StatusCancelled {
			if _, err := allowance.NewLedger(tx).Increment(ctx, o.MemberID, o.Quantity); err != nil {
				return err
			}
			ch.Refunded = o.Quantity
			if s.RestockOnCancel {
				if _, err := inventory.NewCounter(tx).Increment(ctx, o.ProductID, o.Quantity); err != nil {
					return err
				}
				ch.Restocked = o.Quantity
			}
		}
		o.Status = to
		o.UpdatedAt = now
		ch.Order = o
		return nil
	})
	if err != nil {
		return Change{}, domain.TxFailed("set order status", err)
	}
	metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	return ch, nil
}

// GetOrder returns the order if actor owns it or is staff. Other members get
// ErrOrderNotFound so ids of foreign orders are not disclosed.
func (s *Service) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (Order, error) {
	if err := domain.Authorize(actor); err != nil {
		return Order{}, err
	}
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.MemberID != actor.ID && !domain.IsStaff(actor.Role) {
		return Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

// MemberOrders lists a member's orders, newest first.
func (s *Service) MemberOrders(ctx context.Context, memberID string, limit int) ([]Order, error) {
	return s.Store.ListOrders(ctx, ListFilter{MemberID: memberID, Limit: limit})
}

// ListOrders is the staff view over all orders, optionally by status.
func (s *Service) ListOrders(ctx context.Context, actor domain.Actor, status Status) ([]Order, error) {
	if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, domain.Invalid("unknown order status %q", status)
	}
	return s.Store.ListOrders(ctx, ListFilter{Status: status})
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.Store.CountOrdersByStatus(ctx)
}

func (s *Service) RemainingAllowance(ctx context.Context, memberID string) (decimal.Decimal, error) {
	return allowance.NewLedger(s.Store).Remaining(ctx, memberID)
}

func (s *Service) Stock(ctx context.Context, productID string) (decimal.Decimal, error) {
	return inventory.NewCounter(s.Store).Stock(ctx, productID)
}

// Restock adds grams to a strain's stock (staff goods receipt).
func (s *Service) Restock(ctx context.Context, actor domain.Actor, productID string, grams decimal.Decimal) (decimal.Decimal, error) {
	if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
		return decimal.Zero, err
	}
	return inventory.NewCounter(s.Store).Increment(ctx, productID, grams)
}

// OrderLimit is the per-order cap shown next to a strain.
func (s *Service) OrderLimit(ctx context.Context, memberID, productID string) (decimal.Decimal, error) {
	rem, err := s.RemainingAllowance(ctx, memberID)
	if err != nil {
		return decimal.Zero, err
	}
	stock, err := s.Stock(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return Limit(rem, stock), nil
}
