package orders

import (
	"context"
	"time"

	"github.com/ariefcatur/club-portal/internal/allowance"
	"github.com/ariefcatur/club-portal/internal/inventory"
)

// Tx is the unit of work handed to Store.WithTx. Everything done through it
// commits together or not at all.
type Tx interface {
	Lookup
	allowance.Store
	inventory.Store

	InsertOrder(ctx context.Context, o Order) error
	// LockOrder reads the order and holds its row until the transaction ends.
	LockOrder(ctx context.Context, orderID string) (Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, s Status, at time.Time) error
}

// Store is the order register's persistence. The embedded counter stores
// serve single-statement reads and adjustments outside a transaction.
type Store interface {
	allowance.Store
	inventory.Store

	// WithTx runs fn in one transaction: committed if fn returns nil,
	// rolled back otherwise.
	WithTx(ctx context.Context, fn func(Tx) error) error

	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]Order, error)
	CountOrdersByStatus(ctx context.Context) (map[Status]int, error)
}
