package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists bills, their code snapshots and payments. GetByID
// returns the bill fully loaded (codes and payments included).
type Repository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	Update(ctx context.Context, b *Bill) error
	List(ctx context.Context, limit, offset int) ([]*Bill, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Bill, int, error)
	AllByPatient(ctx context.Context, patientID uuid.UUID) ([]*Bill, error)
	AddPayment(ctx context.Context, p *Payment) error
	RemovePayment(ctx context.Context, paymentID uuid.UUID) error
	// ListUnsettledBefore returns bills with an outstanding balance issued
	// before the cutoff, for the delinquency sweep.
	ListUnsettledBefore(ctx context.Context, cutoff time.Time) ([]*Bill, error)
}
