package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo is the Postgres order register.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

// WithTx runs fn at read committed; row locks taken by the Tx methods
// serialize concurrent placements on the same member or strain.
func (r *Repo) WithTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return &domain.TransactionError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &domain.TransactionError{Op: "commit", Err: err}
	}
	return nil
}

func (r *Repo) Allowance(ctx context.Context, memberID string) (decimal.Decimal, error) {
	return allowanceOf(ctx, r.DB, memberID)
}

func (r *Repo) AddAllowance(ctx context.Context, memberID string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	return addAllowance(ctx, r.DB, memberID, delta)
}

func (r *Repo) Stock(ctx context.Context, productID string) (decimal.Decimal, error) {
	return stockOf(ctx, r.DB, productID)
}

func (r *Repo) AddStock(ctx context.Context, productID string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	return addStock(ctx, r.DB, productID, delta)
}

const orderColumns = `id, member_id, strain_id, quantity_grams, status, created_at, updated_at`

func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
}

func (r *Repo) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.MemberID != "" {
		args = append(args, f.MemberID)
		conds = append(conds, fmt.Sprintf("member_id=$%d", len(args)))
	}
	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) CountOrdersByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.DB.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[Status]int, len(AllStatuses))
	for _, s := range AllStatuses {
		out[s] = 0
	}
	for rows.Next() {
		var (
			s string
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[Status(s)] = n
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(&o.ID, &o.MemberID, &o.ProductID, &o.Quantity, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	return o, nil
}

// =============================================================================
// COUNTERS - single-statement bounded updates shared by Repo and pgTx
// =============================================================================

func allowanceOf(ctx context.Context, q querier, memberID string) (decimal.Decimal, error) {
	var rem decimal.Decimal
	err := q.QueryRow(ctx, `SELECT monthly_limit_remaining FROM members WHERE id=$1`, memberID).Scan(&rem)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, domain.ErrMemberNotFound
	}
	return rem, err
}

func addAllowance(ctx context.Context, q querier, memberID string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	var rem decimal.Decimal
	err := q.QueryRow(ctx, `
		UPDATE members SET monthly_limit_remaining = monthly_limit_remaining + $2
		WHERE id=$1 AND monthly_limit_remaining + $2 >= 0
		RETURNING monthly_limit_remaining`, memberID, delta).Scan(&rem)
	if err == nil {
		return rem, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, err
	}
	// Either the member is gone or the bound held; tell them apart.
	cur, err := allowanceOf(ctx, q, memberID)
	if err != nil {
		return decimal.Zero, false, err
	}
	return cur, false, nil
}

func stockOf(ctx context.Context, q querier, productID string) (decimal.Decimal, error) {
	var stock decimal.Decimal
	err := q.QueryRow(ctx, `SELECT stock_grams FROM strains WHERE id=$1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, domain.ErrProductNotFound
	}
	return stock, err
}

func addStock(ctx context.Context, q querier, productID string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	var stock decimal.Decimal
	err := q.QueryRow(ctx, `
		UPDATE strains SET stock_grams = stock_grams + $2, updated_at = now()
		WHERE id=$1 AND stock_grams + $2 >= 0
		RETURNING stock_grams`, productID, delta).Scan(&stock)
	if err == nil {
		return stock, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, err
	}
	cur, err := stockOf(ctx, q, productID)
	if err != nil {
		return decimal.Zero, false, err
	}
	return cur, false, nil
}

// =============================================================================
// TX - placement and status changes
// =============================================================================

type pgTx struct{ q pgx.Tx }

var _ Tx = (*pgTx)(nil)

// LockMember and LockProduct are always taken in this order (member, then
// strain) so two placements can never wait on each other in a cycle.
func (t *pgTx) LockMember(ctx context.Context, memberID string) (MemberState, error) {
	var m MemberState
	err := t.q.QueryRow(ctx, `
		SELECT id, monthly_limit_remaining FROM members WHERE id=$1 FOR UPDATE`, memberID).
		Scan(&m.ID, &m.Remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return MemberState{}, domain.ErrMemberNotFound
	}
	return m, err
}

func (t *pgTx) LockProduct(ctx context.Context, productID string) (ProductState, error) {
	var p ProductState
	err := t.q.QueryRow(ctx, `
		SELECT id, name, stock_grams FROM strains WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Name, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductState{}, domain.ErrProductNotFound
	}
	return p, err
}

func (t *pgTx) Allowance(ctx context.Context, memberID string) (decimal.Decimal, error) {
	return allowanceOf(ctx, t.q, memberID)
}

func (t *pgTx) AddAllowance(ctx context.Context, memberID string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	return addAllowance(ctx, t.q, memberID, delta)
}

func (t *pgTx) Stock(ctx context.Context, productID string) (decimal.Decimal, error) {
	return stockOf(ctx, t.q, productID)
}

func (t *pgTx) AddStock(ctx context.Context, productID string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	return addStock(ctx, t.q, productID, delta)
}

func (t *pgTx) InsertOrder(ctx context.Context, o Order) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO orders(id, member_id, strain_id, quantity_grams, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.MemberID, o.ProductID, o.Quantity, string(o.Status), o.CreatedAt, o.UpdatedAt)
	return err
}

func (t *pgTx) LockOrder(ctx context.Context, orderID string) (Order, error) {
	return scanOrder(t.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, orderID string, s Status, at time.Time) error {
	ct, err := t.q.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, orderID, string(s), at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return domain.ErrOrderNotFound
	}
	return nil
}
