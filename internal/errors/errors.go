package errors

import (
	"errors"
	"fmt"
)

// MaktabaError carries a stable code plus the classification derived from
// it. The code is the contract: logs, tests, and MCP error mapping all key
// on it, while Message is free to change.
type MaktabaError struct {
	Code     string
	Message  string
	Category Category
	Severity Severity

	// Details holds extra key-value context for logs.
	Details map[string]string

	// Cause is the wrapped underlying error, if any.
	Cause error

	// Retryable marks transient failures worth retrying.
	Retryable bool

	// Suggestion tells the user what to do about it.
	Suggestion string
}

func (e *MaktabaError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *MaktabaError) Unwrap() error {
	return e.Cause
}

// Is matches MaktabaErrors by code, so errors.Is works against sentinel
// instances regardless of message.
func (e *MaktabaError) Is(target error) bool {
	var other *MaktabaError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// WithDetail attaches a key-value detail and returns the error for chaining.
func (e *MaktabaError) WithDetail(key, value string) *MaktabaError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets the user-facing remediation hint.
func (e *MaktabaError) WithSuggestion(suggestion string) *MaktabaError {
	e.Suggestion = suggestion
	return e
}

// New builds a MaktabaError for the given code. Category, severity, and the
// retryable flag all come from the code table in codes.go.
func New(code string, message string, cause error) *MaktabaError {
	return &MaktabaError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap classifies an existing error under a code, reusing its message.
// A nil error wraps to nil.
func Wrap(code string, err error) *MaktabaError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Category shorthands for the common cases.

func ConfigError(message string, cause error) *MaktabaError {
	return New(ErrCodeConfigInvalid, message, cause)
}

func IOError(message string, cause error) *MaktabaError {
	return New(ErrCodeFileNotFound, message, cause)
}

func NetworkError(message string, cause error) *MaktabaError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

func ValidationError(message string, cause error) *MaktabaError {
	return New(ErrCodeInvalidInput, message, cause)
}

func InternalError(message string, cause error) *MaktabaError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether err is a retryable MaktabaError anywhere in
// its chain. Unclassified errors are not retried.
func IsRetryable(err error) bool {
	var me *MaktabaError
	if errors.As(err, &me) {
		return me.Retryable
	}
	return false
}

// IsFatal reports whether err carries fatal severity. Fatal errors abort
// the current operation rather than degrade.
func IsFatal(err error) bool {
	var me *MaktabaError
	if errors.As(err, &me) {
		return me.Severity == SeverityFatal
	}
	return false
}

// GetCode returns the code of the first MaktabaError in the chain, or ""
// for unclassified errors.
func GetCode(err error) string {
	var me *MaktabaError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// GetCategory returns the category of the first MaktabaError in the chain.
func GetCategory(err error) Category {
	var me *MaktabaError
	if errors.As(err, &me) {
		return me.Category
	}
	return ""
}
