package billing

import (
	"context"
	"errors"
	"time"

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

const billCols = `id, patient_id, attending_hcp_id, date, cost, amount_owed, status, created_at, updated_at`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.PatientID, &b.AttendingHCPID, &b.Date, &b.Cost,
		&b.AmountOwed, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("bill not found")
	}
	return &b, err
}

func (r *repoPG) Create(ctx context.Context, b *Bill) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bill (id, patient_id, attending_hcp_id, date, cost, amount_owed, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		b.ID, b.PatientID, b.AttendingHCPID, b.Date, b.Cost, b.AmountOwed, b.Status)
	if err != nil {
		return err
	}
	for i, c := range b.CPTCodes {
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO bill_cpt_code (bill_id, cpt_code_id, code, description, cost, position)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			b.ID, c.ID, c.Code, c.Description, c.Cost, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	b, err := scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bill WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadCodes(ctx, b); err != nil {
		return nil, err
	}
	if err := r.loadPayments(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repoPG) Update(ctx context.Context, b *Bill) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bill SET date=$2, cost=$3, amount_owed=$4, status=$5, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.Date, b.Cost, b.AmountOwed, b.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("bill not found")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Bill, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bill`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+billCols+` FROM bill ORDER BY date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(ctx, rows)
	return items, total, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Bill, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bill WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+billCols+` FROM bill WHERE patient_id = $1 ORDER BY date DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(ctx, rows)
	return items, total, err
}

func (r *repoPG) AllByPatient(ctx context.Context, patientID uuid.UUID) ([]*Bill, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+billCols+` FROM bill WHERE patient_id = $1 ORDER BY date ASC`, patientID)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *repoPG) ListUnsettledBefore(ctx context.Context, cutoff time.Time) ([]*Bill, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+billCols+` FROM bill
		 WHERE amount_owed > 0 AND status <> $1 AND date < $2
		 ORDER BY date ASC`,
		StatusDelinquent, cutoff)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *repoPG) AddPayment(ctx context.Context, p *Payment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment (id, bill_id, amount, method)
		VALUES ($1,$2,$3,$4)`,
		p.ID, p.BillID, p.Amount, p.Method)
	return err
}

func (r *repoPG) RemovePayment(ctx context.Context, paymentID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM payment WHERE id = $1`, paymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("payment not found")
	}
	return nil
}

// collect scans the bill rows, then loads codes and payments for each.
func (r *repoPG) collect(ctx context.Context, rows pgx.Rows) ([]*Bill, error) {
	defer rows.Close()
	var items []*Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, b := range items {
		if err := r.loadCodes(ctx, b); err != nil {
			return nil, err
		}
		if err := r.loadPayments(ctx, b); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *repoPG) loadCodes(ctx context.Context, b *Bill) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT cpt_code_id, code, description, cost
		FROM bill_cpt_code WHERE bill_id = $1 ORDER BY position ASC`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var c BillCode
		if err := rows.Scan(&c.ID, &c.Code, &c.Description, &c.Cost); err != nil {
			return err
		}
		b.CPTCodes = append(b.CPTCodes, c)
	}
	return rows.Err()
}

func (r *repoPG) loadPayments(ctx context.Context, b *Bill) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, bill_id, amount, method, created_at
		FROM payment WHERE bill_id = $1 ORDER BY created_at ASC`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.BillID, &p.Amount, &p.Method, &p.CreatedAt); err != nil {
			return err
		}
		b.Payments = append(b.Payments, p)
	}
	return rows.Err()
}
