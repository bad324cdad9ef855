package apperr

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrProductNotActive    = errors.New("product is not active")
	ErrProductClosed       = errors.New("product is already closed")
	ErrInvalidSchedule     = errors.New("invalid schedule parameters")
	ErrAmountMismatch      = errors.New("amount does not match the expected installment")
	ErrAlreadySettled      = errors.New("due record is already settled")
	ErrDueNotFound         = errors.New("due record not found")
	ErrUnauthorized        = errors.New("caller is not allowed to perform this operation")
	ErrIdempotentNoop      = errors.New("operation had no effect")
	ErrRetryableStorage    = errors.New("transient storage failure")
	ErrInvariantViolation  = errors.New("ledger invariant violated")
	ErrAccountNotEligible  = errors.New("account is not active or not KYC verified")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNoCollectableDue    = errors.New("no collectable due record")
	ErrCollectionNotOnHold = errors.New("collection entry is not on hold")
)

// AppError carries a stable machine code alongside a human readable message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new application error
func New(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidSchedule        = "INVALID_SCHEDULE"
	CodeAmountMismatch         = "AMOUNT_MISMATCH"
	CodeAlreadySettled         = "ALREADY_SETTLED"
	CodeStateConflict          = "STATE_CONFLICT"
	CodeIdempotentNoop         = "IDEMPOTENT_NOOP"
	CodeUnauthorizedCollection = "UNAUTHORIZED_COLLECTION"
	CodeUnauthorizedSettlement = "UNAUTHORIZED_SETTLEMENT"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeNotFound               = "NOT_FOUND"
	CodeRetryableStorage       = "STORAGE_RETRYABLE"
	CodeInvariantViolation     = "INVARIANT_VIOLATION"
)

// Wrap common errors with business context

func WrapValidation(reason string) *AppError {
	return New(CodeValidation, reason, nil)
}

func WrapInvalidSchedule(reason string) *AppError {
	return New(CodeInvalidSchedule, reason, ErrInvalidSchedule)
}

func WrapAmountMismatch(expected, actual string) *AppError {
	return New(
		CodeAmountMismatch,
		fmt.Sprintf("amount %s does not match expected installment %s", actual, expected),
		ErrAmountMismatch,
	)
}

func WrapAlreadySettled(dueID string) *AppError {
	return New(
		CodeAlreadySettled,
		fmt.Sprintf("due record %s is already settled", dueID),
		ErrAlreadySettled,
	)
}

func WrapStateConflict(reason string, err error) *AppError {
	return New(CodeStateConflict, reason, err)
}

func WrapIdempotentNoop(reason string) *AppError {
	return New(CodeIdempotentNoop, reason, ErrIdempotentNoop)
}

func WrapUnauthorizedCollection(collectorID string) *AppError {
	return New(
		CodeUnauthorizedCollection,
		fmt.Sprintf("collector %s is not authorized for this product", collectorID),
		ErrUnauthorized,
	)
}

func WrapUnauthorizedSettlement(callerID string) *AppError {
	return New(
		CodeUnauthorizedSettlement,
		fmt.Sprintf("caller %s is not authorized to settle this product", callerID),
		ErrUnauthorized,
	)
}

func WrapUnauthorized(reason string) *AppError {
	return New(CodeUnauthorized, reason, ErrUnauthorized)
}

func WrapNotFound(kind, id string) *AppError {
	return New(
		CodeNotFound,
		fmt.Sprintf("%s %s not found", kind, id),
		ErrProductNotFound,
	)
}

func WrapStorageError(err error) *AppError {
	return New(CodeRetryableStorage, "storage operation failed", errors.Join(ErrRetryableStorage, err))
}

func WrapInvariantViolation(reason string) *AppError {
	return New(CodeInvariantViolation, reason, ErrInvariantViolation)
}

// IsRetryable reports whether the whole atomic unit may be safely retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryableStorage)
}

// IsConflict reports whether the error signals a detected race; callers
// should re-fetch state instead of retrying the same payload.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadySettled) || errors.Is(err, ErrInvalidTransition)
}
