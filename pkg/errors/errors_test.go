package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeInvalidInput, "bad address"),
			expected: "[INVALID_INPUT] bad address",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeSourceError, "open snapshot", errors.New("permission denied")),
			expected: "[SOURCE_ERROR] open snapshot: permission denied",
		},
		{
			name:     "formatted",
			err:      Newf(CodeWorkerFailed, "worker %d aborted", 3),
			expected: "[WORKER_FAILED] worker 3 aborted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeSchemaError, "load schema", underlying)

	assert.Equal(t, underlying, err.Unwrap())
	assert.ErrorIs(t, err, underlying)
}

func TestAppError_Is(t *testing.T) {
	err1 := New(CodeWorkerFailed, "error 1")
	err2 := New(CodeWorkerFailed, "error 2")
	err3 := New(CodeInvalidInput, "error 3")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestHelpers(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", New(CodeWorkerFailed, "worker 0 panicked"))

	assert.True(t, IsWorkerFailed(wrapped))
	assert.False(t, IsInvalidInput(wrapped))
	assert.True(t, IsInvalidInput(ErrInvalidInput))
	assert.True(t, IsSourceError(Wrap(CodeSourceError, "read", errors.New("eof"))))
	assert.True(t, IsNotFound(ErrNotFound))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, CodeWorkerFailed, GetErrorCode(fmt.Errorf("x: %w", ErrWorkerFailed)))
	assert.Equal(t, CodeUnknown, GetErrorCode(errors.New("plain")))
	assert.Equal(t, CodeUnknown, GetErrorCode(nil))
}

func TestGetErrorMessage(t *testing.T) {
	assert.Equal(t, "bad address", GetErrorMessage(New(CodeInvalidInput, "bad address")))
	assert.Equal(t, "plain", GetErrorMessage(errors.New("plain")))
	assert.Equal(t, "", GetErrorMessage(nil))
}
