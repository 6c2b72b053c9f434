package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/billing/internal/apperr"
)

// TxRunner runs fn inside a database transaction. Wired to db.WithTx in the
// server; a passthrough in tests.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	bills  Repository
	tx     TxRunner
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(bills Repository, tx TxRunner, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{bills: bills, tx: tx, logger: logger, now: time.Now}
}

// CreateForVisit issues the bill for an office visit. The cost is the sum
// of the attached code snapshots and the full amount is owed up front.
func (s *Service) CreateForVisit(ctx context.Context, patientID, hcpID uuid.UUID, date time.Time, codes []BillCode) (*Bill, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if hcpID == uuid.Nil {
		return nil, apperr.Validation("attending_hcp_id is required")
	}
	if date.IsZero() {
		return nil, apperr.Validation("date is required")
	}

	cost := 0
	for _, c := range codes {
		cost += c.Cost
	}

	b := &Bill{
		ID:             uuid.New(),
		PatientID:      patientID,
		AttendingHCPID: hcpID,
		CPTCodes:       codes,
	}
	if err := b.SetCost(cost); err != nil {
		return nil, err
	}
	b.SetDate(date, s.now())
	if err := b.SetAmountOwed(cost, s.now()); err != nil {
		return nil, err
	}

	if err := s.bills.Create(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("bill_id", b.ID.String()).
		Str("patient_id", patientID.String()).
		Int("cost", cost).
		Str("status", string(b.Status)).
		Msg("bill issued")
	return b, nil
}

func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return s.bills.GetByID(ctx, id)
}

func (s *Service) ListBills(ctx context.Context, limit, offset int) ([]*Bill, int, error) {
	return s.bills.List(ctx, limit, offset)
}

func (s *Service) ListBillsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Bill, int, error) {
	return s.bills.ListByPatient(ctx, patientID, limit, offset)
}

// AllBillsByPatient returns every bill for a patient, oldest first. Used by
// the certificate projection.
func (s *Service) AllBillsByPatient(ctx context.Context, patientID uuid.UUID) ([]*Bill, error) {
	return s.bills.AllByPatient(ctx, patientID)
}

// SetStatus writes a bill status directly, subject to the consistency rules
// on Bill.SetStatus.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status BillStatus) (*Bill, error) {
	b, err := s.bills.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.SetStatus(status); err != nil {
		return nil, err
	}
	if err := s.bills.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ApplyPayment validates and applies a payment to a bill. A payment larger
// than the outstanding balance is declined and the bill is unchanged. The
// payment row and the updated balance are persisted in one transaction.
func (s *Service) ApplyPayment(ctx context.Context, billID uuid.UUID, amount int, method PaymentMethod) (*Bill, error) {
	p, err := NewPayment(amount, method)
	if err != nil {
		return nil, err
	}

	var b *Bill
	err = s.tx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.bills.GetByID(ctx, billID)
		if err != nil {
			return err
		}
		if err := b.ApplyPayment(p, s.now()); err != nil {
			return err
		}
		if err := s.bills.AddPayment(ctx, p); err != nil {
			return err
		}
		return s.bills.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("bill_id", billID.String()).
		Str("payment_id", p.ID.String()).
		Int("amount", amount).
		Str("method", string(method)).
		Int("amount_owed", b.AmountOwed).
		Msg("payment applied")
	return b, nil
}

// ReversePayment removes a payment from a bill and restores its amount to
// the balance. The payment delete and the balance update are persisted in
// one transaction.
func (s *Service) ReversePayment(ctx context.Context, billID, paymentID uuid.UUID) (*Bill, error) {
	var (
		b *Bill
		p *Payment
	)
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.bills.GetByID(ctx, billID)
		if err != nil {
			return err
		}
		p, err = b.ReversePayment(paymentID, s.now())
		if err != nil {
			return err
		}
		if err := s.bills.RemovePayment(ctx, paymentID); err != nil {
			return err
		}
		return s.bills.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("bill_id", billID.String()).
		Str("payment_id", paymentID.String()).
		Int("amount", p.Amount).
		Int("amount_owed", b.AmountOwed).
		Msg("payment reversed")
	return b, nil
}

// SweepDelinquent re-derives the status of bills that crossed the
// delinquency window without any mutation touching them, and persists the
// ones that changed. Returns the number of bills flipped.
func (s *Service) SweepDelinquent(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.AddDate(0, 0, -delinquencyDays)
	stale, err := s.bills.ListUnsettledBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	flipped := 0
	for _, b := range stale {
		before := b.Status
		b.Recompute(now)
		if b.Status == before {
			continue
		}
		if err := s.bills.Update(ctx, b); err != nil {
			return flipped, err
		}
		s.logger.Info().
			Str("bill_id", b.ID.String()).
			Str("from", string(before)).
			Str("to", string(b.Status)).
			Msg("bill status swept")
		flipped++
	}
	return flipped, nil
}
