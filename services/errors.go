package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeEmbedding      ErrorType = "embedding_failure"
	ErrorTypeRetrieval      ErrorType = "retrieval_failure"
	ErrorTypeSynthesis      ErrorType = "synthesis_failure"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeNotInitialized ErrorType = "not_initialized"
	ErrorTypeExternal       ErrorType = "external"
	ErrorTypeInternal       ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

var (
	ErrEmbeddingFailed     = NewDomainError(ErrorTypeEmbedding, "embedding failed", nil)
	ErrDimensionMismatch   = NewDomainError(ErrorTypeEmbedding, "embedding dimension mismatch", nil)
	ErrRetrievalFailed     = NewDomainError(ErrorTypeRetrieval, "vector search failed", nil)
	ErrSynthesisFailed     = NewDomainError(ErrorTypeSynthesis, "language model call failed", nil)
	ErrEmptyCompletion     = NewDomainError(ErrorTypeSynthesis, "language model returned no content", nil)
	ErrInvalidInput        = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrStoreNotInitialized = NewDomainError(ErrorTypeNotInitialized, "vector store not initialized", nil)
	ErrProviderUnavailable = NewDomainError(ErrorTypeExternal, "LLM provider unavailable", nil)
	ErrInternal            = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// IsEmbeddingError checks if an error is an embedding failure
func IsEmbeddingError(err error) bool {
	return GetErrorType(err) == ErrorTypeEmbedding
}

// IsRetrievalError checks if an error is a retrieval failure
func IsRetrievalError(err error) bool {
	return GetErrorType(err) == ErrorTypeRetrieval
}

// IsSynthesisError checks if an error is a synthesis failure
func IsSynthesisError(err error) bool {
	return GetErrorType(err) == ErrorTypeSynthesis
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsNotInitializedError checks if an error reports a missing store connection
func IsNotInitializedError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotInitialized
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// Cause returns the innermost error a domain error wraps, so fallback
// messages show the failure itself rather than the taxonomy prefix.
func Cause(err error) error {
	for {
		var domainErr *DomainError
		if !errors.As(err, &domainErr) || domainErr.Err == nil {
			return err
		}
		err = domainErr.Err
	}
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapEmbedding wraps an error as an embedding failure
func WrapEmbedding(message string, err error) error {
	return NewDomainError(ErrorTypeEmbedding, message, err)
}

// WrapRetrieval wraps an error as a retrieval failure
func WrapRetrieval(message string, err error) error {
	return NewDomainError(ErrorTypeRetrieval, message, err)
}

// WrapSynthesis wraps an error as a synthesis failure
func WrapSynthesis(message string, err error) error {
	return NewDomainError(ErrorTypeSynthesis, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
