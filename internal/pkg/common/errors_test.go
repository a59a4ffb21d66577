package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidationError_Wrapped(t *testing.T) {
	err := fmt.Errorf("compute targets: %w", NewFieldError("conditions", "unknown code %q", "flu"))

	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), `conditions: unknown code "flu"`)
	assert.False(t, IsValidationError(errors.New("boom")))
}

func TestErrorStatus(t *testing.T) {
	status, code := ErrorStatus(NewValidationError("bad"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrCodeInvalidRequest, code)

	status, code = ErrorStatus(fmt.Errorf("wrap: %w", ErrBatchTooLarge))
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, ErrCodeBatchTooLarge, code)

	status, code = ErrorStatus(errors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ErrCodeInternalError, code)
}

func TestCustomError_Unwrap(t *testing.T) {
	cause := errors.New("redis: connection refused")
	err := NewError(ErrCodeServiceUnavailable, "intake unavailable", http.StatusServiceUnavailable, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "intake unavailable: redis: connection refused", err.Error())
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.2))
	assert.Equal(t, 1.0, Clamp01(1.7))
	assert.Equal(t, 0.3, Clamp01(0.3))
}

func TestFilterFields_DropsSensitiveKeys(t *testing.T) {
	assert.True(t, isSensitiveKey("database_dsn"))
	assert.True(t, isSensitiveKey("Redis_Password"))
	assert.False(t, isSensitiveKey("candidate"))
}
