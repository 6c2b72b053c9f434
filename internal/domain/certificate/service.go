package certificate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/billing/internal/domain/billing"
	"github.com/clinicore/billing/internal/domain/identity"
)

// BillSource supplies the patient's full bill ledger, oldest first.
type BillSource interface {
	AllBillsByPatient(ctx context.Context, patientID uuid.UUID) ([]*billing.Bill, error)
}

// UserSource resolves the authenticated username to a directory entry.
type UserSource interface {
	GetByUsername(ctx context.Context, username string) (*identity.User, error)
}

type Service struct {
	bills  BillSource
	users  UserSource
	logger zerolog.Logger
}

func NewService(bills BillSource, users UserSource, logger zerolog.Logger) *Service {
	return &Service{bills: bills, users: users, logger: logger}
}

// Build assembles the certificate for the named patient. A patient with no
// bills gets a certificate with an empty element list.
func (s *Service) Build(ctx context.Context, username string) (*Certificate, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	bills, err := s.bills.AllBillsByPatient(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	cert := &Certificate{
		Patient:  PatientRef{ID: u.ID, Username: u.Username},
		Elements: make([]Element, 0, len(bills)),
	}
	for _, b := range bills {
		cert.Elements = append(cert.Elements, Element{
			PatientID: b.PatientID,
			BillID:    b.ID,
			Date:      b.Date.Format(time.RFC3339),
			Status:    b.Status,
			TotalCost: b.Cost,
			CPTCodes:  b.CPTCodes,
		})
	}
	return cert, nil
}
