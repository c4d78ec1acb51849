package strains

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/club-portal/internal/domain"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

var _ Store = (*Repo)(nil)

const columns = `id, name, type, thc_percent, cbd_percent, stock_grams, price_per_gram,
	description, image_url, is_visible, created_at, updated_at`

func scanStrain(row pgx.Row) (Strain, error) {
	var (
		s Strain
		t string
	)
	err := row.Scan(&s.ID, &s.Name, &t, &s.THCPercent, &s.CBDPercent, &s.StockGrams, &s.PricePerGram,
		&s.Description, &s.ImageURL, &s.IsVisible, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Strain{}, domain.ErrProductNotFound
	}
	if err != nil {
		return Strain{}, err
	}
	s.Type = Type(t)
	return s, nil
}

func (r *Repo) GetStrain(ctx context.Context, id string) (Strain, error) {
	return scanStrain(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM strains WHERE id=$1`, id))
}

func (r *Repo) ListStrains(ctx context.Context, visibleOnly bool) ([]Strain, error) {
	q := `SELECT ` + columns + ` FROM strains`
	if visibleOnly {
		q += ` WHERE is_visible`
	}
	q += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Strain
	for rows.Next() {
		s, err := scanStrain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) InsertStrain(ctx context.Context, s Strain) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO strains (id, name, type, thc_percent, cbd_percent, stock_grams, price_per_gram,
			description, image_url, is_visible, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		s.ID, s.Name, string(s.Type), s.THCPercent, s.CBDPercent, s.StockGrams, s.PricePerGram,
		s.Description, s.ImageURL, s.IsVisible, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *Repo) UpdateStrain(ctx context.Context, id string, p Patch, at time.Time) (Strain, error) {
	var typ *string
	if p.Type != nil {
		t := string(*p.Type)
		typ = &t
	}
	return scanStrain(r.pool.QueryRow(ctx, `
		UPDATE strains SET
			name           = COALESCE($2, name),
			type           = COALESCE($3, type),
			thc_percent    = COALESCE($4, thc_percent),
			cbd_percent    = COALESCE($5, cbd_percent),
			stock_grams    = COALESCE($6, stock_grams),
			price_per_gram = COALESCE($7, price_per_gram),
			description    = COALESCE($8, description),
			image_url      = COALESCE($9, image_url),
			is_visible     = COALESCE($10, is_visible),
			updated_at     = $11
		WHERE id=$1
		RETURNING `+columns,
		id, p.Name, typ, p.THCPercent, p.CBDPercent, p.StockGrams, p.PricePerGram,
		p.Description, p.ImageURL, p.IsVisible, at))
}

func (r *Repo) DeleteStrain(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM strains WHERE id=$1`, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return domain.Conflict("strain has orders; hide it instead of deleting")
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
