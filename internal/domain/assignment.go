package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assignment maps an agent to a product instance for collection duty.
// Unassignment deactivates, never deletes, so collection history keeps its
// attribution.
type Assignment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	AgentID   uuid.UUID `json:"agent_id" db:"agent_id"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AssignAgentRequest struct {
	AgentID uuid.UUID `json:"agent_id" validate:"required"`
}
