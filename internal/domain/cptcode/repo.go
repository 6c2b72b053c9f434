package cptcode

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists the active catalog and the retired-code history.
type Repository interface {
	Create(ctx context.Context, c *CPTCode) error
	GetByID(ctx context.Context, id uuid.UUID) (*CPTCode, error)
	GetByCode(ctx context.Context, code string) (*CPTCode, error)
	Update(ctx context.Context, c *CPTCode) error
	// Delete removes the entry and records its code string in history.
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*CPTCode, int, error)
	ListHistory(ctx context.Context, limit, offset int) ([]*HistoryEntry, int, error)
	InHistory(ctx context.Context, code string) (bool, error)
}
