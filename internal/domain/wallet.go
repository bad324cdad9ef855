package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types. Reversal posts an opposing amount; posted history is
// never mutated or deleted.
const (
	TxnDisbursed          = "disbursed"
	TxnCollection         = "collection"
	TxnCommission         = "commission"
	TxnMatureClosed       = "mature_closed"
	TxnPrematureClosed    = "premature_closed"
	TxnApprovedWithdrawal = "approved_withdrawal"
	TxnReversal           = "reversal"
)

// Transaction is one immutable ledger line. Amount is signed: credits are
// positive, debits negative.
type Transaction struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	AccountID uuid.UUID       `json:"account_id" db:"account_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	TxnType   string          `json:"txn_type" db:"txn_type"`
	ProductID *uuid.UUID      `json:"product_id,omitempty" db:"product_id"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Wallet balance is never ground truth; it is the replay sum of the
// holder's transactions, optionally served from a cache.
type WalletBalance struct {
	AccountID uuid.UUID       `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Live      bool            `json:"live"`
}
