package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/pkg/apperr"
)

type dueRepository struct {
	db *sqlx.DB
}

func NewDueRepository(db *sqlx.DB) DueRepository {
	return &dueRepository{db: db}
}

const dueColumns = `id, product_id, installment_no, expected_amount, due_date, status, created_at`

func (r *dueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DueRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + dueColumns + ` FROM due_records WHERE id = $1`

	var due domain.DueRecord
	err := r.db.GetContext(ctx, &due, query, id)
	if err != nil {
		return nil, wrapDB(err, apperr.ErrDueNotFound)
	}

	return &due, nil
}

func (r *dueRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.DueRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + dueColumns + ` FROM due_records
		WHERE product_id = $1
		ORDER BY installment_no
	`

	var dues []*domain.DueRecord
	err := r.db.SelectContext(ctx, &dues, query, productID)
	if err != nil {
		return nil, wrapDB(err, nil)
	}

	return dues, nil
}

func (r *dueRepository) ListDue(ctx context.Context, productID uuid.UUID, asOf time.Time) ([]*domain.DueRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + dueColumns + ` FROM due_records
		WHERE product_id = $1 AND status IN ('due', 'overdue') AND due_date <= $2
		ORDER BY installment_no
	`

	var dues []*domain.DueRecord
	err := r.db.SelectContext(ctx, &dues, query, productID, asOf)
	if err != nil {
		return nil, wrapDB(err, nil)
	}

	return dues, nil
}

func (r *dueRepository) FirstCollectable(ctx context.Context, productID uuid.UUID) (*domain.DueRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + dueColumns + ` FROM due_records
		WHERE product_id = $1 AND status IN ('due', 'overdue')
		ORDER BY installment_no
		LIMIT 1
	`

	var due domain.DueRecord
	err := r.db.GetContext(ctx, &due, query, productID)
	if err != nil {
		return nil, wrapDB(err, apperr.ErrNoCollectableDue)
	}

	return &due, nil
}

func (r *dueRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE due_records
		SET status = 'overdue'
		WHERE status = 'due' AND due_date < $1
	`

	result, err := r.db.ExecContext(ctx, query, asOf)
	if err != nil {
		return 0, wrapDB(err, nil)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperr.WrapStorageError(err)
	}

	return affected, nil
}

func (r *dueRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.DueRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + dueColumns + ` FROM due_records
		WHERE status = 'due' AND due_date >= $1 AND due_date <= $2
		ORDER BY due_date
	`

	var dues []*domain.DueRecord
	err := r.db.SelectContext(ctx, &dues, query, from, to)
	if err != nil {
		return nil, wrapDB(err, nil)
	}

	return dues, nil
}
