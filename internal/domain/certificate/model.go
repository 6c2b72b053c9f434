// Package certificate builds the bill certificate: a read-only projection
// of a patient's full billing record, one element per bill.
package certificate

import (
	"github.com/google/uuid"

	"github.com/clinicore/billing/internal/domain/billing"
)

// Certificate is the patient's billing record projection.
type Certificate struct {
	Patient  PatientRef `json:"patient"`
	Elements []Element  `json:"elements"`
}

// PatientRef identifies the patient the certificate belongs to.
type PatientRef struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Element summarizes one bill. Date is an RFC 3339 string.
type Element struct {
	PatientID uuid.UUID          `json:"patient_id"`
	BillID    uuid.UUID          `json:"bill_id"`
	Date      string             `json:"date"`
	Status    billing.BillStatus `json:"status"`
	TotalCost int                `json:"total_cost"`
	CPTCodes  []billing.BillCode `json:"cpt_codes"`
}
