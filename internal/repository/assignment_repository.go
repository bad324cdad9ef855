package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/pkg/apperr"
)

type assignmentRepository struct {
	db *sqlx.DB
}

func NewAssignmentRepository(db *sqlx.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

const assignmentColumns = `id, product_id, agent_id, active, created_at, updated_at`

func (r *assignmentRepository) ActiveForProduct(ctx context.Context, productID uuid.UUID) (*domain.Assignment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE product_id = $1 AND active`

	var assignment domain.Assignment
	err := r.db.GetContext(ctx, &assignment, query, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// no active agent is a normal state, not an error
			return nil, nil
		}
		return nil, apperr.WrapStorageError(err)
	}

	return &assignment, nil
}

// Swap deactivates whatever assignment is active and activates the new
// agent inside one transaction, so the registry never ends an operation
// with two active agents on a product.
func (r *assignmentRepository) Swap(ctx context.Context, productID, agentID uuid.UUID) (*domain.Assignment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.WrapStorageError(err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `
		UPDATE assignments SET active = false, updated_at = $2 WHERE product_id = $1 AND active
	`, productID, time.Now()); err != nil {
		return nil, apperr.WrapStorageError(err)
	}

	assignment := &domain.Assignment{
		ID:        uuid.New(),
		ProductID: productID,
		AgentID:   agentID,
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO assignments (id, product_id, agent_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, assignment.ID, assignment.ProductID, assignment.AgentID, assignment.Active, assignment.CreatedAt, assignment.UpdatedAt); err != nil {
		return nil, apperr.WrapStorageError(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, apperr.WrapStorageError(err)
	}

	return assignment, nil
}

func (r *assignmentRepository) Deactivate(ctx context.Context, productID, agentID uuid.UUID) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE assignments SET active = false, updated_at = $3
		WHERE product_id = $1 AND agent_id = $2 AND active
	`, productID, agentID, time.Now())
	if err != nil {
		return false, wrapDB(err, nil)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperr.WrapStorageError(err)
	}

	return affected > 0, nil
}

func (r *assignmentRepository) ListByAgent(ctx context.Context, agentID uuid.UUID, category domain.Category, limit, skip int) ([]*domain.Assignment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT a.id, a.product_id, a.agent_id, a.active, a.created_at, a.updated_at
		FROM assignments a
		JOIN products p ON p.id = a.product_id
		WHERE a.agent_id = $1 AND a.active
		  AND ($2 = '' OR p.category = $2)
		ORDER BY a.created_at DESC
		LIMIT $3 OFFSET $4
	`

	var assignments []*domain.Assignment
	err := r.db.SelectContext(ctx, &assignments, query, agentID, string(category), limit, skip)
	if err != nil {
		return nil, wrapDB(err, nil)
	}

	return assignments, nil
}

func (r *assignmentRepository) ListForProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Assignment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + assignmentColumns + ` FROM assignments
		WHERE product_id = $1
		ORDER BY created_at DESC
	`

	var assignments []*domain.Assignment
	err := r.db.SelectContext(ctx, &assignments, query, productID)
	if err != nil {
		return nil, wrapDB(err, nil)
	}

	return assignments, nil
}
