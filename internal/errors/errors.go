package errors

import (
	"errors"
	"fmt"
)

// StudyError represents a structured pipeline error with a stable error code.
// Codes are part of the reporting contract: downstream report tooling matches
// on them to decide whether a run failed fatally or only lost a specification.
type StudyError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *StudyError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is a StudyError carrying the same code.
// This lets callers match wrapped errors against the predefined sentinels.
func (e *StudyError) Is(target error) bool {
	var se *StudyError
	if errors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

// New creates a new StudyError with the given code and message
func New(code, message string) *StudyError {
	return &StudyError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails creates a new StudyError with additional details
func NewWithDetails(code, message string, details interface{}) *StudyError {
	return &StudyError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Predefined error types for the pipeline stages
var (
	// ErrSchema: a required column is absent from the input extract.
	// Fatal, aborts the run before any computation.
	ErrSchema = New("SCHEMA_ERROR", "required column missing from input")

	// ErrImputation: unrecoverable missing-data pattern or numerical failure
	// during chained-equations estimation. Fatal, aborts before modeling.
	ErrImputation = New("IMPUTATION_ERROR", "missing-value imputation failed")

	// ErrInsufficientData: post-filter sample too small to fit the requested
	// specification. Fatal for that specification only.
	ErrInsufficientData = New("INSUFFICIENT_DATA", "sample too small for requested specification")
)

// SchemaDetails carries the offending column for schema errors
type SchemaDetails struct {
	Column string `json:"column"`
}

// InsufficientDataDetails carries the sample geometry for rank-deficiency errors
type InsufficientDataDetails struct {
	SampleSize int `json:"sample_size"`
	Regressors int `json:"regressors"`
}

// NewSchemaError creates a schema error naming the missing column
func NewSchemaError(column string) *StudyError {
	return NewWithDetails("SCHEMA_ERROR",
		fmt.Sprintf("required column %q missing from input", column),
		SchemaDetails{Column: column})
}

// NewImputationError creates an imputation error with a failure reason
func NewImputationError(reason string) *StudyError {
	return NewWithDetails("IMPUTATION_ERROR",
		fmt.Sprintf("missing-value imputation failed: %s", reason),
		reason)
}

// NewInsufficientData creates an insufficient-data error for a design with
// regressors parameters and sampleSize rows.
func NewInsufficientData(sampleSize, regressors int) *StudyError {
	return NewWithDetails("INSUFFICIENT_DATA",
		fmt.Sprintf("sample of %d rows cannot identify %d regressors", sampleSize, regressors),
		InsufficientDataDetails{SampleSize: sampleSize, Regressors: regressors})
}

// IsSchemaError reports whether err is (or wraps) a schema error
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

// IsImputationError reports whether err is (or wraps) an imputation error
func IsImputationError(err error) bool {
	return errors.Is(err, ErrImputation)
}

// IsInsufficientData reports whether err is (or wraps) an insufficient-data error
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}
