package manp

import (
	"errors"
	"fmt"

	"github.com/roach88/manp/internal/ir"
)

// Diagnostic reports why the analysis of a function was aborted.
//
// Diagnostics include:
//   - Unsupported operation: an fhe operator without a noise rule
//   - Malformed graph: a missing operand bound or literal payload, a value
//     defined twice, or a wrong operand count
//   - Width overflow: a bound wider than the configured limit
//
// Every diagnostic is fatal to the function being analyzed. No partial
// annotations are returned alongside it.
type Diagnostic struct {
	// Code identifies the error category.
	Code DiagnosticCode

	// Message is a human-readable reason.
	Message string

	// Function names the function being analyzed.
	Function string

	// Value is the result of the offending operation, if it has one.
	Value ir.ValueID

	// Op is the dialect-qualified name of the offending operation.
	Op string

	// Loc is the source location of the offending operation.
	Loc ir.Location
}

// DiagnosticCode categorizes analysis failures.
type DiagnosticCode string

const (
	// ErrCodeUnsupportedOperation indicates an fhe operator has no rule.
	ErrCodeUnsupportedOperation DiagnosticCode = "UNSUPPORTED_OPERATION"

	// ErrCodeMalformedGraph indicates the input graph broke a precondition.
	ErrCodeMalformedGraph DiagnosticCode = "MALFORMED_GRAPH"

	// ErrCodeWidthOverflow indicates a bound exceeded the width limit.
	ErrCodeWidthOverflow DiagnosticCode = "WIDTH_OVERFLOW"
)

// Error implements the error interface.
// The format mirrors compiler diagnostics: "loc: CODE: message (op=..., value=...)".
func (e *Diagnostic) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Loc.IsKnown() {
		msg = e.Loc.String() + ": " + msg
	}
	switch {
	case e.Op != "" && e.Value != "":
		return fmt.Sprintf("%s (function=%s, op=%s, value=%s)", msg, e.Function, e.Op, e.Value)
	case e.Op != "":
		return fmt.Sprintf("%s (function=%s, op=%s)", msg, e.Function, e.Op)
	default:
		return fmt.Sprintf("%s (function=%s)", msg, e.Function)
	}
}

// IsUnsupported returns true if the error is an unsupported operation
// diagnostic. Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	return hasCode(err, ErrCodeUnsupportedOperation)
}

// IsMalformed returns true if the error is a malformed graph diagnostic.
func IsMalformed(err error) bool {
	return hasCode(err, ErrCodeMalformedGraph)
}

// IsWidthOverflow returns true if the error is a width overflow diagnostic.
func IsWidthOverflow(err error) bool {
	return hasCode(err, ErrCodeWidthOverflow)
}

func hasCode(err error, code DiagnosticCode) bool {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Code == code
	}
	return false
}

// newDiagnostic builds a diagnostic located at op.
func newDiagnostic(code DiagnosticCode, fn *ir.Function, op *ir.Operation, format string, args ...any) *Diagnostic {
	d := &Diagnostic{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
	if fn != nil {
		d.Function = fn.Name
	}
	if op != nil {
		d.Value = op.ID
		d.Op = op.Name
		d.Loc = op.Loc
	}
	return d
}

// NewUnsupportedError creates a diagnostic for an fhe operator without a rule.
func NewUnsupportedError(fn *ir.Function, op *ir.Operation, reason string) *Diagnostic {
	return newDiagnostic(ErrCodeUnsupportedOperation, fn, op, "%s", reason)
}

// NewMalformedError creates a diagnostic for a broken graph precondition.
func NewMalformedError(fn *ir.Function, op *ir.Operation, format string, args ...any) *Diagnostic {
	return newDiagnostic(ErrCodeMalformedGraph, fn, op, format, args...)
}

// NewWidthOverflowError creates a diagnostic for a bound of width bits
// exceeding limit bits.
func NewWidthOverflowError(fn *ir.Function, op *ir.Operation, width, limit uint64) *Diagnostic {
	return newDiagnostic(ErrCodeWidthOverflow, fn, op,
		"squared norm needs %d bits, limit is %d", width, limit)
}
