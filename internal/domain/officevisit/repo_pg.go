package officevisit

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

const visitCols = `id, patient_id, hcp_id, date, bill_id, created_at, updated_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.HCPID, &v.Date, &v.BillID, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("office visit not found")
	}
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO office_visit (id, patient_id, hcp_id, date, bill_id)
		VALUES ($1,$2,$3,$4,$5)`,
		v.ID, v.PatientID, v.HCPID, v.Date, v.BillID)
	if err != nil {
		return err
	}
	return r.writeCodes(ctx, v)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM office_visit WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadCodes(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *repoPG) Update(ctx context.Context, v *Visit) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE office_visit SET date=$2, bill_id=$3, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.Date, v.BillID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("office visit not found")
	}
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM office_visit_code WHERE visit_id = $1`, v.ID); err != nil {
		return err
	}
	return r.writeCodes(ctx, v)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM office_visit`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+visitCols+` FROM office_visit ORDER BY date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(ctx, rows)
	return items, total, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM office_visit WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+visitCols+` FROM office_visit WHERE patient_id = $1 ORDER BY date DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(ctx, rows)
	return items, total, err
}

func (r *repoPG) collect(ctx context.Context, rows pgx.Rows) ([]*Visit, error) {
	defer rows.Close()
	var items []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, v := range items {
		if err := r.loadCodes(ctx, v); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *repoPG) writeCodes(ctx context.Context, v *Visit) error {
	for i, c := range v.Codes {
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO office_visit_code (visit_id, cpt_code_id, code, position)
			VALUES ($1,$2,$3,$4)`,
			v.ID, c.CodeID, c.Code, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) loadCodes(ctx context.Context, v *Visit) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT cpt_code_id, code FROM office_visit_code
		WHERE visit_id = $1 ORDER BY position ASC`, v.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var c VisitCode
		if err := rows.Scan(&c.CodeID, &c.Code); err != nil {
			return err
		}
		v.Codes = append(v.Codes, c)
	}
	return rows.Err()
}
