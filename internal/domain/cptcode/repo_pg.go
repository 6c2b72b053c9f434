package cptcode

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/billing/internal/apperr"
	"github.com/clinicore/billing/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const codeCols = `id, code, description, cost, created_at, updated_at`

func scanCode(row pgx.Row) (*CPTCode, error) {
	var c CPTCode
	err := row.Scan(&c.ID, &c.Code, &c.Description, &c.Cost, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("cpt code not found")
	}
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *CPTCode) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cpt_code (id, code, description, cost)
		VALUES ($1,$2,$3,$4)`,
		c.ID, c.Code, c.Description, c.Cost)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*CPTCode, error) {
	return scanCode(r.conn(ctx).QueryRow(ctx,
		`SELECT `+codeCols+` FROM cpt_code WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*CPTCode, error) {
	return scanCode(r.conn(ctx).QueryRow(ctx,
		`SELECT `+codeCols+` FROM cpt_code WHERE code = $1`, code))
}

func (r *repoPG) Update(ctx context.Context, c *CPTCode) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE cpt_code SET description=$2, cost=$3, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Description, c.Cost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("cpt code not found")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	var code string
	err := r.conn(ctx).QueryRow(ctx,
		`DELETE FROM cpt_code WHERE id = $1 RETURNING code`, id).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("cpt code not found")
	}
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO cpt_code_history (code) VALUES ($1)
		ON CONFLICT (code) DO NOTHING`, code)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*CPTCode, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM cpt_code`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+codeCols+` FROM cpt_code ORDER BY code ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*CPTCode
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListHistory(ctx context.Context, limit, offset int) ([]*HistoryEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM cpt_code_history`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT code, deleted_at FROM cpt_code_history
		ORDER BY deleted_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.Code, &h.DeletedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &h)
	}
	return items, total, rows.Err()
}

func (r *repoPG) InHistory(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM cpt_code_history WHERE code = $1)`, code).Scan(&exists)
	return exists, err
}
