package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event kinds consumed by the external notification sink.
const (
	EventDueSoon   = "due_soon"
	EventCollected = "collected"
	EventSettled   = "settled"
)

// Event is a fire-and-forget domain notification. Delivery failures never
// fail the originating operation.
type Event struct {
	Kind       string          `json:"kind"`
	ProductID  uuid.UUID       `json:"product_id"`
	HolderID   uuid.UUID       `json:"holder_id"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}
