package ir

import (
	"errors"
	"fmt"
)

// InvariantViolation is the panic payload for broken internal invariants.
//
// These are programming errors in the surrounding toolchain (an analysis
// result that was never computed, a condition in a position the front end
// should have rejected), not recoverable conditions. The CLI turns an
// escaped InvariantViolation into a diagnostic and exit code 2.
type InvariantViolation struct {
	// Code identifies the broken invariant.
	Code ViolationCode

	// Message is a human-readable description.
	Message string
}

// ViolationCode categorizes invariant violations.
type ViolationCode string

const (
	// CodeNotAnalyzed indicates a required analysis annotation is absent.
	CodeNotAnalyzed ViolationCode = "NOT_ANALYZED"

	// CodeUnexpectedModifies indicates a modifies property inside a body.
	CodeUnexpectedModifies ViolationCode = "UNEXPECTED_MODIFIES"

	// CodeInvalidExpression indicates an Invalid node reached a consumer.
	CodeInvalidExpression ViolationCode = "INVALID_EXPRESSION"

	// CodeNotAStruct indicates a struct type was required.
	CodeNotAStruct ViolationCode = "NOT_A_STRUCT"

	// CodeMissingInstantiation indicates a node has no instantiation.
	CodeMissingInstantiation ViolationCode = "MISSING_INSTANTIATION"

	// CodeNoFixedPoint indicates a dataflow analysis ran out of iterations.
	CodeNoFixedPoint ViolationCode = "NO_FIXED_POINT"

	// CodeWrongVariant indicates an accessor was used on the wrong node kind.
	CodeWrongVariant ViolationCode = "WRONG_VARIANT"
)

// Error implements the error interface.
func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s (%s)", e.Message, e.Code)
}

// Violate panics with an InvariantViolation.
func Violate(code ViolationCode, format string, args ...any) {
	panic(&InvariantViolation{Code: code, Message: fmt.Sprintf(format, args...)})
}

func violate(code ViolationCode, format string, args ...any) {
	Violate(code, format, args...)
}

// IsInvariantViolation reports whether err is or wraps an InvariantViolation.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}

// AsInvariantViolation extracts an InvariantViolation from a recovered panic
// value, returning nil for any other payload.
func AsInvariantViolation(recovered any) *InvariantViolation {
	switch v := recovered.(type) {
	case *InvariantViolation:
		return v
	case error:
		var iv *InvariantViolation
		if errors.As(v, &iv) {
			return iv
		}
	}
	return nil
}
