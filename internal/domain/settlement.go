package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementQuote is the advisory closing figure for a product as of a
// date. Nothing moves until the quote is confirmed.
type SettlementQuote struct {
	ProductID uuid.UUID       `json:"product_id"`
	Category  Category        `json:"category"`
	AsOf      time.Time       `json:"as_of"`
	Mature    bool            `json:"mature"`
	Amount    decimal.Decimal `json:"amount"`
	Penalty   decimal.Decimal `json:"penalty"`
	Rebate    decimal.Decimal `json:"rebate"`
	TotalPaid decimal.Decimal `json:"total_paid"`
}

// SettlementConfirmation is the outcome of confirming a quote. Confirming
// an already-closed product reports the terminal state without posting
// anything again.
type SettlementConfirmation struct {
	Product       *Product         `json:"product"`
	Quote         *SettlementQuote `json:"quote,omitempty"`
	AlreadyClosed bool             `json:"already_closed"`
}
