// Package mcp implements the Model Context Protocol server for MaktabaMCP.
package mcp

import (
	"context"
	"errors"
	"fmt"

	maktabaerrors "github.com/maktabalab/maktabamcp/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeIndexNotFound indicates no corpus index exists.
	ErrCodeIndexNotFound = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeDocumentNotFound indicates a document is not in the store.
	ErrCodeDocumentNotFound = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrIndexNotFound indicates no corpus index exists.
	ErrIndexNotFound = errors.New("index not found")

	// ErrDocumentNotFound indicates a document is not in the store.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var me *maktabaerrors.MaktabaError
	if errors.As(err, &me) {
		return mapMaktabaError(me)
	}

	switch {
	case errors.Is(err, ErrIndexNotFound):
		return &MCPError{
			Code:    ErrCodeIndexNotFound,
			Message: "Index not found. Run 'maktabamcp index' first.",
		}
	case errors.Is(err, ErrDocumentNotFound):
		return &MCPError{
			Code:    ErrCodeDocumentNotFound,
			Message: "Document not found.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Tool not found.",
		}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid parameters.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapMaktabaError converts a MaktabaError to an MCPError.
// The suggestion, when present, travels with the message so AI clients
// can relay an actionable hint.
func mapMaktabaError(me *maktabaerrors.MaktabaError) *MCPError {
	message := me.Message
	if me.Suggestion != "" {
		message = fmt.Sprintf("%s %s", me.Message, me.Suggestion)
	}

	switch me.Category {
	case maktabaerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case maktabaerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case maktabaerrors.CategoryIO:
		switch me.Code {
		case maktabaerrors.ErrCodeCorruptIndex:
			return &MCPError{Code: ErrCodeIndexNotFound, Message: message}
		case maktabaerrors.ErrCodeFileNotFound:
			return &MCPError{Code: ErrCodeDocumentNotFound, Message: message}
		default:
			return &MCPError{Code: ErrCodeInternalError, Message: message}
		}
	default: // CategoryConfig, CategoryInternal, unknown
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
