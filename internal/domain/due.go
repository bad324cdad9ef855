package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Due record lifecycle. Paid and Collected are terminal-success, Hold is a
// provisional settlement awaiting confirmation (cash in transit), Overdue is
// time-driven and reversible once paid late, Void means no longer expected
// after a closure settlement.
const (
	DueStatusDue       = "due"
	DueStatusPaid      = "paid"
	DueStatusCollected = "collected"
	DueStatusHold      = "hold"
	DueStatusOverdue   = "overdue"
	DueStatusVoid      = "void"
)

// DueRecord is one scheduled obligation for a product instance.
type DueRecord struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	ProductID      uuid.UUID       `json:"product_id" db:"product_id"`
	InstallmentNo  int             `json:"installment_no" db:"installment_no"`
	ExpectedAmount decimal.Decimal `json:"expected_amount" db:"expected_amount"`
	DueDate        time.Time       `json:"due_date" db:"due_date"`
	Status         string          `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Collectable reports whether a collection may still be applied to this record.
func (d *DueRecord) Collectable() bool {
	return d.Status == DueStatusDue || d.Status == DueStatusOverdue
}

type DueListResponse struct {
	ProductID uuid.UUID    `json:"product_id"`
	Dues      []*DueRecord `json:"dues"`
}
