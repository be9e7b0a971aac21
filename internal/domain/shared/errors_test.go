package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := &DomainError{Code: "TAB_LOADING", Message: "orders are still loading"}
	assert.True(t, errors.Is(err, ErrTabLoading))
	assert.False(t, errors.Is(err, ErrNotFound))

	wrapped := fmt.Errorf("activate: %w", err)
	assert.True(t, errors.Is(wrapped, ErrTabLoading))
}

func TestWrapDomainError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapDomainError("FETCH_FAILED", "Failed to load orders", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to load orders: connection refused", err.Error())

	var de *DomainError
	assert.True(t, errors.As(fmt.Errorf("x: %w", err), &de))
	assert.Equal(t, "FETCH_FAILED", de.Code)
}
