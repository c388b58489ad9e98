package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntitySpecificErrorsWrapGenericOnes(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.Is(ErrUserNotFound, ErrNotFound))
	assert.True(t, errors.Is(ErrCapsuleNotFound, ErrNotFound))
	assert.True(t, errors.Is(ErrTokenNotFound, ErrNotFound))
	assert.True(t, errors.Is(ErrEmailExists, ErrDuplicate))

	assert.False(t, errors.Is(ErrEmailExists, ErrNotFound))
	assert.False(t, errors.Is(ErrCapsuleNotFound, ErrDuplicate))
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFoundError(ErrNotFound))
	assert.True(t, IsNotFoundError(ErrCapsuleNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("loading capsule: %w", ErrCapsuleNotFound)))
	assert.False(t, IsNotFoundError(ErrEmailExists))
	assert.False(t, IsNotFoundError(errors.New("boom")))
}

func TestIsDuplicateError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDuplicateError(ErrDuplicate))
	assert.True(t, IsDuplicateError(ErrEmailExists))
	assert.False(t, IsDuplicateError(ErrUserNotFound))
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection reset")
	err := NewStoreError("capsule", "create", "insert failed", inner)

	assert.Contains(t, err.Error(), "create operation on capsule failed")
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, errors.Is(err, inner))

	bare := NewStoreError("user", "delete", "no rows", nil)
	assert.Equal(t, "delete operation on user failed: no rows", bare.Error())
}
