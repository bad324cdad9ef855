package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is the closed set of product variants. Schedule and settlement
// math dispatch on it through a single switch, never on raw strings.
type Category string

const (
	CategoryRD   Category = "RD"
	CategoryFD   Category = "FD"
	CategoryLoan Category = "Loan"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryRD, CategoryFD, CategoryLoan:
		return true
	}
	return false
}

// IsDeposit reports whether the category is a deposit variant.
func (c Category) IsDeposit() bool {
	return c == CategoryRD || c == CategoryFD
}

const (
	ProductStatusPending  = "pending"
	ProductStatusActive   = "active"
	ProductStatusClosed   = "closed"
	ProductStatusRejected = "rejected"
)

// Product represents one deposit or loan instance. TotalPaid and
// TotalPayable are denormalized sums maintained inside the same atomic
// unit that settles due records.
type Product struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	HolderID     uuid.UUID       `json:"holder_id" db:"holder_id"`
	Category     Category        `json:"category" db:"category"`
	Principal    decimal.Decimal `json:"principal" db:"principal"`
	Rate         decimal.Decimal `json:"rate" db:"rate"`
	TermMonths   int             `json:"term_months" db:"term_months"`
	StartDate    time.Time       `json:"start_date" db:"start_date"`
	Status       string          `json:"status" db:"status"`
	TotalPaid    decimal.Decimal `json:"total_paid" db:"total_paid"`
	TotalPayable decimal.Decimal `json:"total_payable" db:"total_payable"`
	ReferrerID   *uuid.UUID      `json:"referrer_id,omitempty" db:"referrer_id"`
	Remark       string          `json:"remark,omitempty" db:"remark"`
	DocumentURLs DocumentRefs    `json:"document_urls,omitempty" db:"document_urls"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Remaining returns total_payable minus total_paid.
func (p *Product) Remaining() decimal.Decimal {
	return p.TotalPayable.Sub(p.TotalPaid)
}

// DocumentRefs holds URLs returned by the document storage collaborator.
// The engine never stores blobs, only the references.
type DocumentRefs []string

// DTOs for requests and responses

type ApplyRequest struct {
	Category     Category        `json:"category" validate:"required"`
	Principal    decimal.Decimal `json:"principal" validate:"required"`
	Rate         decimal.Decimal `json:"rate"`
	TermMonths   int             `json:"term_months" validate:"required,gt=0"`
	StartDate    time.Time       `json:"start_date"`
	ReferrerID   *uuid.UUID      `json:"referrer_id,omitempty"`
	DocumentURLs []string        `json:"document_urls,omitempty"`
}

type RejectRequest struct {
	Remark string `json:"remark" validate:"required"`
}

type UpdateReferrerRequest struct {
	ReferrerID uuid.UUID `json:"ref_id" validate:"required"`
}

type ApproveResponse struct {
	Product  *Product     `json:"product"`
	Schedule []*DueRecord `json:"schedule"`
}

// ReferralSummary aggregates a referrer's active referred products.
type ReferralSummary struct {
	DepositCount  int             `json:"deposit_count"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
	LoanCount     int             `json:"loan_count"`
	LoanAmount    decimal.Decimal `json:"loan_amount"`
	Referrals     []ReferralLine  `json:"referrals"`
}

type ReferralLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Category  Category        `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
}
