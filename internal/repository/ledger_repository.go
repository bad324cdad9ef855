package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/pkg/apperr"
)

type ledgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// ApplyCollection settles the due row, appends the collection entry and its
// transactions, and bumps the product totals in one database transaction.
// The conditional UPDATE on the due row is the row-level guard: of two
// concurrent collectors exactly one sees a row change, the other gets
// AlreadySettled.
func (r *ledgerRepository) ApplyCollection(ctx context.Context, unit *CollectionUnit) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.WrapStorageError(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE due_records
		SET status = $2
		WHERE id = $1 AND status IN ('due', 'overdue')
	`, unit.DueID, unit.DueStatus)
	if err != nil {
		return apperr.WrapStorageError(err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.WrapAlreadySettled(unit.DueID.String())
	}

	entry := unit.Entry
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO collection_entries (id, product_id, due_id, amount, collected_by, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.ProductID, entry.DueID, entry.Amount, entry.CollectedBy, entry.Status, time.Now()); err != nil {
		return apperr.WrapStorageError(err)
	}

	for _, txn := range unit.Transactions {
		if err = insertTransaction(ctx, tx, txn); err != nil {
			return err
		}
	}

	// total_paid may never pass total_payable; a concurrent writer that
	// would push it over loses here and the whole unit rolls back.
	result, err = tx.ExecContext(ctx, `
		UPDATE products
		SET total_paid = total_paid + $2,
		    status = CASE WHEN $3 AND total_paid + $2 >= total_payable THEN 'closed' ELSE status END,
		    updated_at = $4
		WHERE id = $1 AND status = 'active' AND total_paid + $2 <= total_payable
	`, unit.ProductID, unit.Amount, unit.CloseProduct, time.Now())
	if err != nil {
		return apperr.WrapStorageError(err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.WrapStateConflict("collection would exceed the total payable", apperr.ErrInvalidTransition)
	}

	if err = tx.Commit(); err != nil {
		return apperr.WrapStorageError(err)
	}

	return nil
}

func (r *ledgerRepository) ConfirmHold(ctx context.Context, entryID uuid.UUID) (*domain.CollectionEntry, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.WrapStorageError(err)
	}
	defer tx.Rollback()

	var entry domain.CollectionEntry
	err = tx.GetContext(ctx, &entry, `
		UPDATE collection_entries
		SET status = 'collected'
		WHERE id = $1 AND status = 'hold'
		RETURNING id, product_id, due_id, amount, collected_by, status, created_at
	`, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.WrapStateConflict("collection entry is not on hold", apperr.ErrCollectionNotOnHold)
		}
		return nil, apperr.WrapStorageError(err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE due_records SET status = 'collected' WHERE id = $1 AND status = 'hold'
	`, entry.DueID); err != nil {
		return nil, apperr.WrapStorageError(err)
	}

	// the confirmed hold may have been the last open obligation; a hold in
	// flight on another row keeps the product open
	if _, err = tx.ExecContext(ctx, `
		UPDATE products
		SET status = 'closed', updated_at = $2
		WHERE id = $1 AND status = 'active' AND total_paid >= total_payable
		  AND NOT EXISTS (
			SELECT 1 FROM due_records
			WHERE product_id = $1 AND status IN ('due', 'overdue', 'hold')
		  )
	`, entry.ProductID, time.Now()); err != nil {
		return nil, apperr.WrapStorageError(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, apperr.WrapStorageError(err)
	}

	return &entry, nil
}

// ApplySettlement closes the product, voids the obligations still expected
// and posts the closing transactions. The conditional status flip makes a
// second confirm a clean loser instead of a double posting.
func (r *ledgerRepository) ApplySettlement(ctx context.Context, unit *SettlementUnit) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.WrapStorageError(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE products
		SET status = 'closed', total_paid = total_paid + $2, updated_at = $3
		WHERE id = $1 AND status = 'active'
	`, unit.ProductID, unit.TotalPaidAdd, time.Now())
	if err != nil {
		return apperr.WrapStorageError(err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.ErrProductClosed
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE due_records
		SET status = 'void'
		WHERE product_id = $1 AND status IN ('due', 'overdue')
	`, unit.ProductID); err != nil {
		return apperr.WrapStorageError(err)
	}

	for _, txn := range unit.Transactions {
		if err = insertTransaction(ctx, tx, txn); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return apperr.WrapStorageError(err)
	}

	return nil
}

func (r *ledgerRepository) ListCollections(ctx context.Context, productID uuid.UUID, limit, skip int) ([]*domain.CollectionEntry, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, product_id, due_id, amount, collected_by, status, created_at
		FROM collection_entries
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var entries []*domain.CollectionEntry
	err := r.db.SelectContext(ctx, &entries, query, productID, limit, skip)
	if err != nil {
		return nil, wrapDB(err, nil)
	}

	return entries, nil
}

func (r *ledgerRepository) SumCollections(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum,
		`SELECT COALESCE(SUM(amount), 0) FROM collection_entries WHERE product_id = $1`,
		productID,
	)
	if err != nil {
		return decimal.Zero, wrapDB(err, nil)
	}

	return sum, nil
}

func (r *ledgerRepository) Post(ctx context.Context, txn *domain.Transaction) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.WrapStorageError(err)
	}
	defer tx.Rollback()

	if err = insertTransaction(ctx, tx, txn); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return apperr.WrapStorageError(err)
	}

	return nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, account_id, amount, txn_type, product_id, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at
	`

	var txns []*domain.Transaction
	err := r.db.SelectContext(ctx, &txns, query, accountID)
	if err != nil {
		return nil, wrapDB(err, nil)
	}

	return txns, nil
}

func (r *ledgerRepository) SumTransactions(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE account_id = $1`,
		accountID,
	)
	if err != nil {
		return decimal.Zero, wrapDB(err, nil)
	}

	return sum, nil
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, txn *domain.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, amount, txn_type, product_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, txn.ID, txn.AccountID, txn.Amount, txn.TxnType, txn.ProductID, time.Now())
	if err != nil {
		return apperr.WrapStorageError(err)
	}
	return nil
}
