// Package cptcode holds the CPT code catalog: the billable procedure codes
// a visit can carry, and the history of code strings that were retired.
package cptcode

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/billing/internal/apperr"
)

// codeLength is the fixed width of a CPT code string.
const codeLength = 5

// CPTCode is an active catalog entry. Cost is integer cents.
type CPTCode struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Description string    `json:"description" db:"description"`
	Cost        int       `json:"cost" db:"cost"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the code string and cost.
func (c *CPTCode) Validate() error {
	if len(c.Code) != codeLength {
		return apperr.Validation("CPT codes must be 5 characters long.")
	}
	if c.Cost < 0 {
		return apperr.Validation("CPT code cost must be a positive integer.")
	}
	return nil
}

// HistoryEntry records a code string removed from the catalog. A retired
// code string can never be added again.
type HistoryEntry struct {
	Code      string    `json:"code" db:"code"`
	DeletedAt time.Time `json:"deleted_at" db:"deleted_at"`
}
