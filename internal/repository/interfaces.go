package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finlend/ledger-engine/internal/domain"
)

// CollectionUnit is everything one collection mutates. ApplyCollection
// executes it all-or-nothing: the due row settle is guarded by a conditional
// update so concurrent collectors resolve to one winner.
type CollectionUnit struct {
	DueID        uuid.UUID
	DueStatus    string
	Entry        *domain.CollectionEntry
	Transactions []*domain.Transaction
	ProductID    uuid.UUID
	Amount       decimal.Decimal
	CloseProduct bool
}

// SettlementUnit closes a product: posts the closing transactions, flips the
// status and voids the remaining obligations in one transaction.
type SettlementUnit struct {
	ProductID    uuid.UUID
	Transactions []*domain.Transaction
	TotalPaidAdd decimal.Decimal
}

// ProductRepository defines the interface for product instance data operations
type ProductRepository interface {
	// Create persists a pending product application
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// UpdateApplication rewrites the mutable application fields while pending or rejected
	UpdateApplication(ctx context.Context, product *domain.Product) error

	// ActivateWithSchedule flips pending to active, persists the generated
	// schedule and the optional disbursal transaction atomically
	ActivateWithSchedule(ctx context.Context, product *domain.Product, dues []*domain.DueRecord, disbursal *domain.Transaction) error

	// Reject flips pending to rejected with a remark
	Reject(ctx context.Context, id uuid.UUID, remark string) error

	// UpdateReferrer sets the referrer attribution
	UpdateReferrer(ctx context.Context, id uuid.UUID, referrerID uuid.UUID) error

	// ListByHolder pages the holder's products, optionally filtered
	ListByHolder(ctx context.Context, holderID uuid.UUID, category domain.Category, status string, limit, skip int) ([]*domain.Product, error)

	// ListAll pages all products for staff views
	ListAll(ctx context.Context, category domain.Category, status string, limit, skip int) ([]*domain.Product, error)

	// ListByReferrer returns active products attributed to a referrer
	ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]*domain.Product, error)
}

// DueRepository defines the interface for due record data operations
type DueRepository interface {
	// GetByID retrieves a due record by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DueRecord, error)

	// ListByProduct retrieves the full schedule ordered by installment
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.DueRecord, error)

	// ListDue retrieves collectable records due on or before asOf
	ListDue(ctx context.Context, productID uuid.UUID, asOf time.Time) ([]*domain.DueRecord, error)

	// FirstCollectable returns the earliest record a collection may target
	FirstCollectable(ctx context.Context, productID uuid.UUID) (*domain.DueRecord, error)

	// MarkOverdue sweeps due records past their due date, returns rows flipped
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)

	// ListDueBetween returns records falling due inside the window, for reminders
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.DueRecord, error)
}

// LedgerRepository defines the interface for collection entries and wallet
// transactions. Both tables are append-only.
type LedgerRepository interface {
	// ApplyCollection executes a collection unit atomically
	ApplyCollection(ctx context.Context, unit *CollectionUnit) error

	// ConfirmHold moves a held collection entry and its due record to collected
	ConfirmHold(ctx context.Context, entryID uuid.UUID) (*domain.CollectionEntry, error)

	// ApplySettlement executes a settlement unit atomically
	ApplySettlement(ctx context.Context, unit *SettlementUnit) error

	// ListCollections pages the collection entries of a product
	ListCollections(ctx context.Context, productID uuid.UUID, limit, skip int) ([]*domain.CollectionEntry, error)

	// SumCollections totals the entry amounts for a product
	SumCollections(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)

	// Post appends a single standalone transaction
	Post(ctx context.Context, txn *domain.Transaction) error

	// ListTransactions returns an account's full transaction history
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error)

	// SumTransactions replays the signed sum of an account's transactions
	SumTransactions(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

// AssignmentRepository defines the interface for agent assignment operations
type AssignmentRepository interface {
	// ActiveForProduct returns the single active assignment, if any
	ActiveForProduct(ctx context.Context, productID uuid.UUID) (*domain.Assignment, error)

	// Swap deactivates any active assignment and activates the new agent atomically
	Swap(ctx context.Context, productID, agentID uuid.UUID) (*domain.Assignment, error)

	// Deactivate ends an active assignment; reports whether a row changed
	Deactivate(ctx context.Context, productID, agentID uuid.UUID) (bool, error)

	// ListByAgent pages an agent's active workload
	ListByAgent(ctx context.Context, agentID uuid.UUID, category domain.Category, limit, skip int) ([]*domain.Assignment, error)

	// ListForProduct returns all assignments of a product, newest first
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Assignment, error)
}
