// Package billing holds the bill ledger: bills issued for office visits,
// the payments applied against them, and the status each bill derives from
// its balance and age.
package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/billing/internal/apperr"
)

// BillStatus is the payment state of a bill.
type BillStatus string

const (
	StatusPaid          BillStatus = "PAID"
	StatusUnpaid        BillStatus = "UNPAID"
	StatusDelinquent    BillStatus = "DELINQUENT"
	StatusPartiallyPaid BillStatus = "PARTIALLY_PAID"
)

var validBillStatuses = map[BillStatus]bool{
	StatusPaid: true, StatusUnpaid: true, StatusDelinquent: true, StatusPartiallyPaid: true,
}

// Valid reports whether s is a known bill status.
func (s BillStatus) Valid() bool {
	return validBillStatuses[s]
}

// PaymentMethod is how a payment was made.
type PaymentMethod string

const (
	MethodCash       PaymentMethod = "CASH"
	MethodCheck      PaymentMethod = "CHECK"
	MethodCreditCard PaymentMethod = "CREDIT_CARD"
	MethodInsurance  PaymentMethod = "INSURANCE"
)

var validPaymentMethods = map[PaymentMethod]bool{
	MethodCash: true, MethodCheck: true, MethodCreditCard: true, MethodInsurance: true,
}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return validPaymentMethods[m]
}

// delinquencyDays is the age past which an unpaid bill becomes delinquent.
const delinquencyDays = 60

// Bill is a patient bill. Amounts are integer cents. Status is always
// derived from the balance and date; it is never written directly except
// through SetStatus, which enforces consistency with the balance.
type Bill struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	PatientID      uuid.UUID  `json:"patient_id" db:"patient_id"`
	AttendingHCPID uuid.UUID  `json:"attending_hcp_id" db:"attending_hcp_id"`
	Date           time.Time  `json:"date" db:"date"`
	Cost           int        `json:"cost" db:"cost"`
	AmountOwed     int        `json:"amount_owed" db:"amount_owed"`
	Status         BillStatus `json:"status" db:"status"`
	CPTCodes       []BillCode `json:"cpt_codes"`
	Payments       []Payment  `json:"payments"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// BillCode is a snapshot of a catalog CPT code taken when the bill was
// issued. Later catalog edits do not change what the patient was billed.
type BillCode struct {
	ID          uuid.UUID `json:"id" db:"cpt_code_id"`
	Code        string    `json:"code" db:"code"`
	Description string    `json:"description" db:"description"`
	Cost        int       `json:"cost" db:"cost"`
}

// Payment is money applied against a bill.
type Payment struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	BillID    uuid.UUID     `json:"bill_id" db:"bill_id"`
	Amount    int           `json:"amount" db:"amount"`
	Method    PaymentMethod `json:"method" db:"method"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// NewPayment validates and constructs a payment.
func NewPayment(amount int, method PaymentMethod) (*Payment, error) {
	if amount <= 0 {
		return nil, apperr.Validation("Amount paid can't be 0 or negative")
	}
	if !method.Valid() {
		return nil, apperr.Validation("invalid payment method: %s", method)
	}
	return &Payment{ID: uuid.New(), Amount: amount, Method: method}, nil
}

// SetCost sets the total cost of the bill.
func (b *Bill) SetCost(cost int) error {
	if cost < 0 {
		return apperr.Validation("Cost cannot be negative")
	}
	b.Cost = cost
	return nil
}

// SetAmountOwed sets the outstanding balance and re-derives the status.
func (b *Bill) SetAmountOwed(amount int, now time.Time) error {
	if amount < 0 {
		return apperr.Validation("Cannot owe a negative amount")
	}
	b.AmountOwed = amount
	b.Recompute(now)
	return nil
}

// SetDate sets the issue date and re-derives the status, so backdating a
// bill past the delinquency window flips it delinquent immediately.
func (b *Bill) SetDate(date, now time.Time) {
	b.Date = date
	b.Recompute(now)
}

// Recompute derives the status from the balance and age. The rules are
// evaluated in order and later rules win:
//
//  1. tentatively PARTIALLY_PAID
//  2. UNPAID when nothing has been paid
//  3. DELINQUENT when the bill is older than the delinquency window
//  4. PAID when the balance is zero
//
// A fully paid bill is therefore PAID even when overdue, and an overdue
// balance beats both UNPAID and PARTIALLY_PAID.
func (b *Bill) Recompute(now time.Time) {
	status := StatusPartiallyPaid
	if b.AmountOwed == b.Cost {
		status = StatusUnpaid
	}
	if b.Overdue(now) {
		status = StatusDelinquent
	}
	if b.AmountOwed == 0 {
		status = StatusPaid
	}
	b.Status = status
}

// Overdue reports whether the bill date is strictly older than the
// delinquency window. A bill exactly at the boundary is not yet overdue.
func (b *Bill) Overdue(now time.Time) bool {
	return !b.Date.IsZero() && now.AddDate(0, 0, -delinquencyDays).After(b.Date)
}

// SetStatus writes the status directly, rejecting writes inconsistent with
// the balance. Used when a billing specialist overrides the derived state.
func (b *Bill) SetStatus(status BillStatus) error {
	if !status.Valid() {
		return apperr.Validation("invalid bill status: %s", status)
	}
	if b.AmountOwed < 0 {
		return apperr.Validation("Cannot owe a negative amount")
	}
	if b.AmountOwed != 0 && status == StatusPaid {
		return apperr.Validation("Bill cannot be set to paid if bill is not fully paid")
	}
	if b.AmountOwed == 0 && (status == StatusUnpaid || status == StatusDelinquent) {
		return apperr.Validation("Bill cannot be set to unpaid or delinquent if bill is fully paid")
	}
	b.Status = status
	return nil
}

// ApplyPayment applies a payment against the balance. A payment larger than
// the balance is declined outright; the bill is left untouched.
func (b *Bill) ApplyPayment(p *Payment, now time.Time) error {
	if p.Amount > b.AmountOwed {
		return apperr.Conflict("payment of %d exceeds amount owed %d", p.Amount, b.AmountOwed)
	}
	b.AmountOwed -= p.Amount
	b.Recompute(now)
	p.BillID = b.ID
	b.Payments = append(b.Payments, *p)
	return nil
}

// ReversePayment removes a previously applied payment and restores its
// amount to the balance, capped at the bill cost. Returns the removed
// payment.
func (b *Bill) ReversePayment(paymentID uuid.UUID, now time.Time) (*Payment, error) {
	for i, p := range b.Payments {
		if p.ID == paymentID {
			b.Payments = append(b.Payments[:i], b.Payments[i+1:]...)
			restored := b.AmountOwed + p.Amount
			if restored > b.Cost {
				restored = b.Cost
			}
			b.AmountOwed = restored
			b.Recompute(now)
			return &p, nil
		}
	}
	return nil, apperr.NotFound("payment not found on bill")
}
