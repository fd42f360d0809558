// Package pipeline orchestrates the surveillance stages: validate, clean,
// the three parallel aggregate stages, correlation and the quality gate.
package pipeline

import (
	"fmt"
)

// ErrorType categorizes pipeline failures. Only fatal input errors abort a
// run; rejected rows are recovered and counted, undefined statistics
// surface as nil fields, and a degraded run completes with a metadata flag.
type ErrorType string

const (
	// ErrorTypeFatalInput marks unreadable or empty input, the only
	// condition that aborts a run
	ErrorTypeFatalInput ErrorType = "fatal_input"
	// ErrorTypeRowRejected marks a recovered per-row schema or range
	// violation
	ErrorTypeRowRejected ErrorType = "row_rejected"
	// ErrorTypeInsufficientData marks a statistic that could not be
	// computed from the available points
	ErrorTypeInsufficientData ErrorType = "insufficient_data"
	// ErrorTypeDegraded marks a completed run whose rejection rate
	// exceeded the quality threshold
	ErrorTypeDegraded ErrorType = "degraded_run"
	// ErrorTypeStage marks an unexpected stage failure
	ErrorTypeStage ErrorType = "stage"
	// ErrorTypeCancellation marks a run stopped by its context
	ErrorTypeCancellation ErrorType = "cancellation"
)

// PipelineError carries the category, stage and cause of a failure
type PipelineError struct {
	Type    ErrorType              `json:"type"`
	Stage   string                 `json:"stage,omitempty"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewFatalInputError creates the abort-condition error
func NewFatalInputError(message string, cause error) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeFatalInput,
		Message: message,
		Cause:   cause,
	}
}

// NewStageError wraps an unexpected failure with its stage
func NewStageError(stage string, cause error) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeStage,
		Stage:   stage,
		Message: "stage execution failed",
		Cause:   cause,
	}
}

// NewCancellationError creates a cancellation error for the given stage
func NewCancellationError(stage string, cause error) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeCancellation,
		Stage:   stage,
		Message: "run was cancelled",
		Cause:   cause,
	}
}

// NewDegradedError describes a quality threshold breach. Runs never return
// it; it exists so consumers inspecting metadata can classify the outcome
// with the same taxonomy.
func NewDegradedError(rate, threshold float64) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeDegraded,
		Message: fmt.Sprintf("rejection rate %.2f%% exceeded threshold %.2f%%", rate*100, threshold*100),
		Context: map[string]interface{}{
			"rate":      rate,
			"threshold": threshold,
		},
	}
}

// IsFatal checks whether the error should abort a run
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if pErr, ok := err.(*PipelineError); ok {
		return pErr.Type == ErrorTypeFatalInput
	}
	return false
}

// GetErrorType returns the error's category, defaulting to stage failure
// for foreign errors
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	if pErr, ok := err.(*PipelineError); ok {
		return pErr.Type
	}
	return ErrorTypeStage
}

// WrapError attaches stage context to a foreign error, passing pipeline
// errors through with the stage filled in
func WrapError(err error, stage string) *PipelineError {
	if err == nil {
		return nil
	}
	if pErr, ok := err.(*PipelineError); ok {
		if pErr.Stage == "" {
			pErr.Stage = stage
		}
		return pErr
	}
	return &PipelineError{
		Type:    ErrorTypeStage,
		Stage:   stage,
		Message: err.Error(),
		Cause:   err,
	}
}

// ErrorList collects non-fatal errors across artifacts or stages
type ErrorList struct {
	Errors []*PipelineError `json:"errors"`
}

// Error implements the error interface
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors: %d errors occurred", len(e.Errors))
}

// Add appends a non-nil error to the list
func (e *ErrorList) Add(err *PipelineError) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors reports whether any error was collected
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrOrNil returns the list as an error, or nil when empty
func (e *ErrorList) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}
