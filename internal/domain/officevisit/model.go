// Package officevisit holds office visits and the CPT codes attached to
// them. Creating a visit issues the patient's bill from the attached codes.
package officevisit

import (
	"time"

	"github.com/google/uuid"
)

// Visit is an office visit. Codes is the ordered list of catalog references
// attached to the visit; BillID points at the bill issued when the visit was
// created.
type Visit struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	PatientID uuid.UUID   `json:"patient_id" db:"patient_id"`
	HCPID     uuid.UUID   `json:"hcp_id" db:"hcp_id"`
	Date      time.Time   `json:"date" db:"date"`
	BillID    uuid.UUID   `json:"bill_id" db:"bill_id"`
	Codes     []VisitCode `json:"codes"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// VisitCode references a catalog entry by id. The code string is carried so
// duplicate detection can match on it as well as on the id.
type VisitCode struct {
	CodeID uuid.UUID `json:"code_id" db:"cpt_code_id"`
	Code   string    `json:"code" db:"code"`
}

// HasCode reports whether the visit already holds the code, by id or by
// code string.
func (v *Visit) HasCode(codeID uuid.UUID, code string) bool {
	for _, c := range v.Codes {
		if c.CodeID == codeID || c.Code == code {
			return true
		}
	}
	return false
}
