package messages

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/club-portal/internal/domain"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

var _ Store = (*Repo)(nil)

const columns = `id, from_id, to_id, subject, content, read, created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.FromID, &m.ToID, &m.Subject, &m.Content, &m.Read, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, domain.ErrMessageNotFound
	}
	return m, err
}

func (r *Repo) collect(ctx context.Context, sql string, args ...any) ([]Message, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) InsertMessage(ctx context.Context, m Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, from_id, to_id, subject, content, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.FromID, m.ToID, m.Subject, m.Content, m.Read, m.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return domain.ErrMemberNotFound
	}
	return err
}

func (r *Repo) GetMessage(ctx context.Context, id string) (Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM messages WHERE id=$1`, id))
}

func (r *Repo) ListMessagesFor(ctx context.Context, userID string) ([]Message, error) {
	return r.collect(ctx, `
		SELECT `+columns+` FROM messages
		WHERE from_id=$1 OR to_id=$1
		ORDER BY created_at DESC`, userID)
}

func (r *Repo) ListConversation(ctx context.Context, a, b string) ([]Message, error) {
	return r.collect(ctx, `
		SELECT `+columns+` FROM messages
		WHERE (from_id=$1 AND to_id=$2) OR (from_id=$2 AND to_id=$1)
		ORDER BY created_at`, a, b)
}

func (r *Repo) MarkMessageRead(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE messages SET read=true WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *Repo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE to_id=$1 AND NOT read`, userID).Scan(&n)
	return n, err
}
