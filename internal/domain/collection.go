package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Collection entry status mirrors the settlement outcome of the due record
// it satisfies.
const (
	CollectionStatusPaid      = "paid"
	CollectionStatusCollected = "collected"
	CollectionStatusHold      = "hold"
)

// CollectionEntry is an immutable record of a payment applied against a due
// record. Entries are append-only; reconciliation of a held entry flips its
// status but never its amount.
type CollectionEntry struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	DueID       uuid.UUID       `json:"due_id" db:"due_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	CollectedBy uuid.UUID       `json:"collected_by" db:"collected_by"`
	Status      string          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type CollectRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	DueID  *uuid.UUID      `json:"due_id,omitempty"`
	// Hold records the collection provisionally (cash in transit); it must
	// be confirmed before it counts as terminal.
	Hold bool `json:"hold,omitempty"`
}

type CollectionResult struct {
	Entry       *CollectionEntry `json:"entry"`
	Due         *DueRecord       `json:"due"`
	Transaction *Transaction     `json:"transaction"`
	TotalPaid   decimal.Decimal  `json:"total_paid"`
	FullyPaid   bool             `json:"fully_paid"`
}

// LedgerAudit compares the denormalized paid counter with the sum recomputed
// from the collection entries. A divergence is reported, never corrected.
type LedgerAudit struct {
	ProductID  uuid.UUID       `json:"product_id"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
	EntrySum   decimal.Decimal `json:"entry_sum"`
	Consistent bool            `json:"consistent"`
}
