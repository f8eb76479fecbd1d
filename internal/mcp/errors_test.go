package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	maktabaerrors "github.com/maktabalab/maktabamcp/internal/errors"
)

func TestMapErrorNil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapErrorSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"index not found", ErrIndexNotFound, ErrCodeIndexNotFound},
		{"document not found", ErrDocumentNotFound, ErrCodeDocumentNotFound},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"tool not found", ErrToolNotFound, ErrCodeMethodNotFound},
		{"invalid params", ErrInvalidParams, ErrCodeInvalidParams},
		{"unknown", errors.New("boom"), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			require.NotNil(t, mapped)
			assert.Equal(t, tt.code, mapped.Code)
			assert.NotEmpty(t, mapped.Message)
		})
	}
}

func TestMapErrorValidation(t *testing.T) {
	err := maktabaerrors.ValidationError("query must not be empty", nil)

	mapped := MapError(err)
	assert.Equal(t, ErrCodeInvalidParams, mapped.Code)
	assert.Contains(t, mapped.Message, "query must not be empty")
}

func TestMapErrorSuggestionIncluded(t *testing.T) {
	err := maktabaerrors.ValidationError("limit out of range", nil).
		WithSuggestion("Use a limit between 1 and 50.")

	mapped := MapError(err)
	assert.Contains(t, mapped.Message, "limit out of range")
	assert.Contains(t, mapped.Message, "between 1 and 50")
}

func TestMapErrorCorruptIndex(t *testing.T) {
	err := maktabaerrors.New(maktabaerrors.ErrCodeCorruptIndex, "lexical index unreadable", nil)

	mapped := MapError(err)
	assert.Equal(t, ErrCodeIndexNotFound, mapped.Code)
}

func TestMapErrorWrapped(t *testing.T) {
	// MaktabaError wins even inside a wrap chain.
	inner := maktabaerrors.NetworkError("embedding service unreachable", nil)
	wrapped := errors.Join(errors.New("outer"), inner)

	mapped := MapError(wrapped)
	assert.Equal(t, ErrCodeTimeout, mapped.Code)
}

func TestMCPErrorString(t *testing.T) {
	e := NewMethodNotFoundError("missing_tool")
	assert.Contains(t, e.Error(), "missing_tool")
	assert.Contains(t, e.Error(), "-32601")
}
