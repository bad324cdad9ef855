package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_UnwrapsToSentinel(t *testing.T) {
	err := WrapAlreadySettled("due-123")

	assert.True(t, errors.Is(err, ErrAlreadySettled))
	assert.Equal(t, CodeAlreadySettled, err.Code)
	assert.Contains(t, err.Error(), "due-123")
}

func TestIsRetryable(t *testing.T) {
	storage := WrapStorageError(errors.New("connection reset"))
	assert.True(t, IsRetryable(storage))

	assert.False(t, IsRetryable(WrapAlreadySettled("due-123")))
	assert.False(t, IsRetryable(WrapValidation("bad input")))
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(WrapAlreadySettled("due-123")))
	assert.True(t, IsConflict(WrapStateConflict("not pending", ErrInvalidTransition)))

	assert.False(t, IsConflict(WrapStorageError(errors.New("timeout"))))
	assert.False(t, IsConflict(WrapUnauthorized("nope")))
}

func TestWrapStorageError_PreservesCause(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := WrapStorageError(cause)

	assert.True(t, errors.Is(err, ErrRetryableStorage))
	assert.True(t, errors.Is(err, cause))
}
