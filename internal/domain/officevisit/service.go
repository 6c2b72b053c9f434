package officevisit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/billing/internal/apperr"
	"github.com/clinicore/billing/internal/domain/billing"
	"github.com/clinicore/billing/internal/domain/cptcode"
)

// CodeCatalog resolves catalog entries for attachment and billing snapshots.
type CodeCatalog interface {
	GetCode(ctx context.Context, id uuid.UUID) (*cptcode.CPTCode, error)
}

// BillIssuer creates the bill for a visit.
type BillIssuer interface {
	CreateForVisit(ctx context.Context, patientID, hcpID uuid.UUID, date time.Time, codes []billing.BillCode) (*billing.Bill, error)
}

// TxRunner runs fn inside a database transaction. Wired to db.WithTx in the
// server; a passthrough in tests.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	visits  Repository
	catalog CodeCatalog
	bills   BillIssuer
	tx      TxRunner
	logger  zerolog.Logger
}

func NewService(visits Repository, catalog CodeCatalog, bills BillIssuer, tx TxRunner, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{visits: visits, catalog: catalog, bills: bills, tx: tx, logger: logger}
}

// Create records an office visit and issues its bill in one transaction.
// The bill cost is the sum of the attached code costs at the time of the
// visit.
func (s *Service) Create(ctx context.Context, patientID, hcpID uuid.UUID, date time.Time, codeIDs []uuid.UUID) (*Visit, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if hcpID == uuid.Nil {
		return nil, apperr.Validation("hcp_id is required")
	}
	if date.IsZero() {
		return nil, apperr.Validation("date is required")
	}

	v := &Visit{ID: uuid.New(), PatientID: patientID, HCPID: hcpID, Date: date}
	var snapshots []billing.BillCode
	for _, codeID := range codeIDs {
		entry, err := s.catalog.GetCode(ctx, codeID)
		if err != nil {
			return nil, err
		}
		if v.HasCode(entry.ID, entry.Code) {
			return nil, apperr.Conflict("visit already has code %s", entry.Code)
		}
		v.Codes = append(v.Codes, VisitCode{CodeID: entry.ID, Code: entry.Code})
		snapshots = append(snapshots, billing.BillCode{
			ID:          entry.ID,
			Code:        entry.Code,
			Description: entry.Description,
			Cost:        entry.Cost,
		})
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		b, err := s.bills.CreateForVisit(ctx, patientID, hcpID, date, snapshots)
		if err != nil {
			return err
		}
		v.BillID = b.ID
		return s.visits.Create(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("visit_id", v.ID.String()).
		Str("patient_id", patientID.String()).
		Str("bill_id", v.BillID.String()).
		Int("codes", len(v.Codes)).
		Msg("office visit recorded")
	return v, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.visits.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	return s.visits.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return s.visits.ListByPatient(ctx, patientID, limit, offset)
}

// AttachCode adds a catalog code to a visit. Duplicate by id or by code
// string is a conflict. The bill issued for the visit is not reopened.
func (s *Service) AttachCode(ctx context.Context, visitID, codeID uuid.UUID) (*Visit, error) {
	entry, err := s.catalog.GetCode(ctx, codeID)
	if err != nil {
		return nil, err
	}
	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if v.HasCode(entry.ID, entry.Code) {
		return nil, apperr.Conflict("visit already has code %s", entry.Code)
	}
	v.Codes = append(v.Codes, VisitCode{CodeID: entry.ID, Code: entry.Code})
	if err := s.visits.Update(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("visit_id", visitID.String()).
		Str("code", entry.Code).
		Msg("code attached to visit")
	return v, nil
}

// DetachCode removes a catalog code from a visit. The code must exist in
// the catalog and be held by the visit.
func (s *Service) DetachCode(ctx context.Context, visitID, codeID uuid.UUID) (*Visit, error) {
	entry, err := s.catalog.GetCode(ctx, codeID)
	if err != nil {
		return nil, err
	}
	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	found := false
	for i, c := range v.Codes {
		if c.CodeID == codeID {
			v.Codes = append(v.Codes[:i], v.Codes[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return nil, apperr.NotFound("visit does not have code %s", entry.Code)
	}
	if err := s.visits.Update(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("visit_id", visitID.String()).
		Str("code", entry.Code).
		Msg("code detached from visit")
	return v, nil
}
