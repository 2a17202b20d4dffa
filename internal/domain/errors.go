package domain

import (
	"fmt"
	"time"
)

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeDomainRange    = "DOMAIN_RANGE_ERROR"
	ErrCodeComputation    = "COMPUTATION_ERROR"
	ErrCodeMissingData    = "MISSING_DATA"
	ErrCodeStorage        = "STORAGE_ERROR"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// DomainRangeError reports an input outside the supported domain of the
// reference equations. It is fatal to the affected parameter's prediction
// only, never to the whole record or batch.
type DomainRangeError struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Error implements the error interface
func (e *DomainRangeError) Error() string {
	return fmt.Sprintf("%s %.1f outside supported range [%.1f, %.1f]", e.Field, e.Value, e.Min, e.Max)
}

// ComputationError reports an undefined intermediate value, such as a
// non-positive predicted mean or CV, encountered during Z-score
// calculation. Surfaced as a per-field failure, not a crash; nothing in
// the engine substitutes a default number for a failed computation.
type ComputationError struct {
	Parameter Parameter `json:"parameter"`
	Reason    string    `json:"reason"`
}

// Error implements the error interface
func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation error for %s: %s", e.Parameter, e.Reason)
}

// MissingDataError reports data absent from the input record, such as a
// missing post-bronchodilator phase when reversibility assessment was
// requested. Resolved by omission where the contract allows it.
type MissingDataError struct {
	Field string `json:"field"`
}

// Error implements the error interface
func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing data: %s", e.Field)
}

// FieldError is the partial-failure marker attached to an interpretation
// result when a single field's computation fails. Callers can always
// distinguish "computed" from "failed" per field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewFieldError wraps a computation failure for one result field,
// preserving the error taxonomy in the marker's code.
func NewFieldError(field string, err error) FieldError {
	code := ErrCodeComputation
	switch err.(type) {
	case *DomainRangeError:
		code = ErrCodeDomainRange
	case *MissingDataError:
		code = ErrCodeMissingData
	}
	return FieldError{Field: field, Code: code, Message: err.Error()}
}

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}
