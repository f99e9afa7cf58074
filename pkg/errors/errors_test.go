package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataByCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusConflict, MetadataFor(CodeConflict).HTTPStatus)
	assert.True(t, MetadataFor(CodeConflict).Retryable)

	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeStateConflict).HTTPStatus)
	assert.False(t, MetadataFor(CodeStateConflict).Retryable)
	assert.True(t, MetadataFor(CodeStateConflict).DetailsAllowed)

	assert.Equal(t, http.StatusNotFound, MetadataFor(CodeNotFound).HTTPStatus)
	assert.False(t, MetadataFor(CodeForbidden).DetailsAllowed)

	// Unknown codes fall back to internal.
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("BOGUS")).HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "ping redis")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Contains(t, err.Error(), "ping redis")
}

func TestAsUnwrapsThroughLayers(t *testing.T) {
	t.Parallel()

	inner := New(CodeStateConflict, "illegal status transition").
		WithDetails(map[string]any{"from": "delivered", "to": "cancelled"})
	wrapped := fmt.Errorf("transition order: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeStateConflict, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "delivered", details["from"])

	assert.Nil(t, As(stdErrors.New("plain")))
	assert.Nil(t, As(nil))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRetryable(New(CodeConflict, "cart was consumed by a concurrent checkout")))
	assert.False(t, IsRetryable(New(CodeValidation, "cart is empty")))
	assert.False(t, IsRetryable(stdErrors.New("untyped")))
}
