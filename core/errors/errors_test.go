package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewAppError(ErrNotFound, "booking not found", nil)
	assert.Equal(t, "NOT_FOUND: booking not found", err.Error())

	wrapped := NewAppError(ErrInternalServer, "save failed", stderrors.New("conn reset"))
	assert.Equal(t, "INTERNAL_SERVER_ERROR: save failed: conn reset", wrapped.Error())
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewAppError(ErrInternalServer, "failed", cause)

	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	assert.True(t, stderrors.As(error(err), &appErr))
	assert.Equal(t, ErrInternalServer, appErr.Code)
}
