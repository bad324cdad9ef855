package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/finlend/ledger-engine/pkg/apperr"
)

// Every persistence call is bounded by this timeout unless the caller's
// context is already tighter.
var storageTimeout = 5 * time.Second

// SetStorageTimeout overrides the per-call persistence timeout. Called once
// at startup from configuration, before any repository is used.
func SetStorageTimeout(d time.Duration) {
	if d > 0 {
		storageTimeout = d
	}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storageTimeout)
}

// wrapDB classifies a driver error. Not-found passes through as the given
// sentinel so callers can branch on it; everything else becomes a retryable
// storage error, since a failed unit leaves no partial effect. A no-rows
// result without a sentinel is still an error, never a silent zero value.
func wrapDB(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}
	return apperr.WrapStorageError(err)
}
