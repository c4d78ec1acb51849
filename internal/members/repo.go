package members

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/domain"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

var _ Store = (*Repo)(nil)

const columns = `id, email, full_name, residence_id_number, role, monthly_limit,
	monthly_limit_remaining, membership_expiry, created_at`

func scanMember(row pgx.Row) (Member, error) {
	var (
		m    Member
		role string
	)
	err := row.Scan(&m.ID, &m.Email, &m.FullName, &m.ResidenceID, &role, &m.MonthlyLimit,
		&m.Remaining, &m.MembershipExpiry, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, domain.ErrMemberNotFound
	}
	if err != nil {
		return Member{}, err
	}
	m.Role = domain.Role(role)
	return m, nil
}

func (r *Repo) collect(ctx context.Context, sql string, args ...any) ([]Member, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) GetMember(ctx context.Context, id string) (Member, error) {
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM members WHERE id=$1`, id))
}

func (r *Repo) InsertMember(ctx context.Context, m Member) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO members (id, email, full_name, residence_id_number, role, monthly_limit,
			monthly_limit_remaining, membership_expiry, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		m.ID, m.Email, m.FullName, m.ResidenceID, string(m.Role), m.MonthlyLimit,
		m.Remaining, m.MembershipExpiry, m.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrConflict
	}
	return err
}

// SearchMembers matches full name or residence id, case-insensitively.
func (r *Repo) SearchMembers(ctx context.Context, q string, limit int) ([]Member, error) {
	return r.collect(ctx, `
		SELECT `+columns+` FROM members
		WHERE full_name ILIKE '%' || $1 || '%' OR residence_id_number ILIKE '%' || $1 || '%'
		ORDER BY full_name LIMIT $2`, q, limit)
}

func (r *Repo) ListMembers(ctx context.Context) ([]Member, error) {
	return r.collect(ctx, `SELECT `+columns+` FROM members ORDER BY created_at DESC`)
}

func (r *Repo) ListMembersByRole(ctx context.Context, roles ...domain.Role) ([]Member, error) {
	rs := make([]string, len(roles))
	for i, role := range roles {
		rs[i] = string(role)
	}
	return r.collect(ctx, `SELECT `+columns+` FROM members WHERE role = ANY($1) ORDER BY full_name`, rs)
}

func (r *Repo) UpdateMemberRole(ctx context.Context, id string, role domain.Role) (Member, error) {
	return scanMember(r.pool.QueryRow(ctx,
		`UPDATE members SET role=$2 WHERE id=$1 RETURNING `+columns, id, string(role)))
}

func (r *Repo) SetMemberAllowance(ctx context.Context, id string, remaining decimal.Decimal) (Member, error) {
	return scanMember(r.pool.QueryRow(ctx,
		`UPDATE members SET monthly_limit_remaining=$2 WHERE id=$1 RETURNING `+columns, id, remaining))
}

func (r *Repo) DeleteMember(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *Repo) CountMembersByRole(ctx context.Context) (map[domain.Role]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT role, COUNT(*) FROM members GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[domain.Role]int{}
	for rows.Next() {
		var (
			role string
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[domain.Role(role)] = n
	}
	return out, rows.Err()
}
