package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/pkg/apperr"
)

type productRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO products (id, holder_id, category, principal, rate, term_months, start_date, status, total_paid, total_payable, referrer_id, remark, document_urls, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.HolderID,
		product.Category,
		product.Principal,
		product.Rate,
		product.TermMonths,
		product.StartDate,
		product.Status,
		product.TotalPaid,
		product.TotalPayable,
		product.ReferrerID,
		product.Remark,
		pq.Array(product.DocumentURLs),
		now,
		now,
	)

	return wrapDB(err, nil)
}

const productColumns = `id, holder_id, category, principal, rate, term_months, start_date, status, total_paid, total_payable, referrer_id, remark, created_at, updated_at`

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + productColumns + `, document_urls FROM products WHERE id = $1`

	row := r.db.QueryRowxContext(ctx, query, id)
	product, err := scanProduct(row)
	if err != nil {
		return nil, wrapDB(err, apperr.ErrProductNotFound)
	}

	return product, nil
}

func (r *productRepository) UpdateApplication(ctx context.Context, product *domain.Product) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE products
		SET category = $2, principal = $3, rate = $4, term_months = $5, start_date = $6,
		    status = $7, referrer_id = $8, document_urls = $9, remark = '', updated_at = $10
		WHERE id = $1 AND status IN ('pending', 'rejected')
	`

	result, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Category,
		product.Principal,
		product.Rate,
		product.TermMonths,
		product.StartDate,
		domain.ProductStatusPending,
		product.ReferrerID,
		pq.Array(product.DocumentURLs),
		time.Now(),
	)
	if err != nil {
		return wrapDB(err, nil)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.WrapStateConflict("product can no longer be reapplied", apperr.ErrInvalidTransition)
	}

	return nil
}

func (r *productRepository) ActivateWithSchedule(ctx context.Context, product *domain.Product, dues []*domain.DueRecord, disbursal *domain.Transaction) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.WrapStorageError(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE products
		SET status = $2, total_payable = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
	`, product.ID, domain.ProductStatusActive, product.TotalPayable, time.Now())
	if err != nil {
		return apperr.WrapStorageError(err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.WrapStateConflict("product is not pending approval", apperr.ErrInvalidTransition)
	}

	dueInsert := `
		INSERT INTO due_records (id, product_id, installment_no, expected_amount, due_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, due := range dues {
		if _, err = tx.ExecContext(ctx, dueInsert,
			due.ID,
			due.ProductID,
			due.InstallmentNo,
			due.ExpectedAmount,
			due.DueDate,
			due.Status,
			time.Now(),
		); err != nil {
			return apperr.WrapStorageError(err)
		}
	}

	if disbursal != nil {
		if err = insertTransaction(ctx, tx, disbursal); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return apperr.WrapStorageError(err)
	}

	return nil
}

func (r *productRepository) Reject(ctx context.Context, id uuid.UUID, remark string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE products
		SET status = $2, remark = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, domain.ProductStatusRejected, remark, time.Now())
	if err != nil {
		return wrapDB(err, nil)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.WrapStateConflict("product is not pending approval", apperr.ErrInvalidTransition)
	}

	return nil
}

func (r *productRepository) UpdateReferrer(ctx context.Context, id uuid.UUID, referrerID uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET referrer_id = $2, updated_at = $3 WHERE id = $1`,
		id, referrerID, time.Now(),
	)
	if err != nil {
		return wrapDB(err, nil)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.ErrProductNotFound
	}

	return nil
}

func (r *productRepository) ListByHolder(ctx context.Context, holderID uuid.UUID, category domain.Category, status string, limit, skip int) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `, document_urls FROM products
		WHERE holder_id = $1
		  AND ($2 = '' OR category = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	return r.listProducts(ctx, query, holderID, string(category), status, limit, skip)
}

func (r *productRepository) ListAll(ctx context.Context, category domain.Category, status string, limit, skip int) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `, document_urls FROM products
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	return r.listProducts(ctx, query, string(category), status, limit, skip)
}

func (r *productRepository) ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `, document_urls FROM products
		WHERE referrer_id = $1 AND status = 'active'
		ORDER BY created_at DESC
	`
	return r.listProducts(ctx, query, referrerID)
}

func (r *productRepository) listProducts(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDB(err, nil)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.WrapStorageError(err)
		}
		products = append(products, product)
	}

	return products, wrapDB(rows.Err(), nil)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var docs pq.StringArray

	err := row.Scan(
		&p.ID, &p.HolderID, &p.Category, &p.Principal, &p.Rate, &p.TermMonths,
		&p.StartDate, &p.Status, &p.TotalPaid, &p.TotalPayable, &p.ReferrerID,
		&p.Remark, &p.CreatedAt, &p.UpdatedAt, &docs,
	)
	if err != nil {
		return nil, err
	}

	p.DocumentURLs = domain.DocumentRefs(docs)
	return &p, nil
}
