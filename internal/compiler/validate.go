package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/manp/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// Function graph errors (E101-E119)
	ErrEmptyFunctionName  = "E101" // function name is required
	ErrDuplicateValue     = "E102" // value defined more than once
	ErrUndefinedOperand   = "E103" // operand never defined
	ErrUseBeforeDef       = "E104" // operand defined later in program order
	ErrInvalidType        = "E105" // type not valid for its position
	ErrMissingLiteral     = "E106" // constant without payload
	ErrLiteralShape       = "E107" // payload does not match result type
	ErrLiteralOutOfRange  = "E108" // payload does not fit element width
	ErrUnexpectedLiteral  = "E109" // payload on a non-constant operation
	ErrDependencyCycle    = "E110" // operands form a cycle
	ErrMissingResult      = "E111" // typed result without id, or id without type
	ErrDuplicateFunction  = "E112" // function name used twice in a module
	ErrEmptyOperationName = "E113" // operation name is required
)

// ValidationError represents a graph validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks that a compiled graph is well formed: single assignment,
// define-before-use, acyclic, well typed, with literals that fit their types.
// Returns all errors found (does not fail-fast).
// Supports Function and Module values.
func Validate(v any) []ValidationError {
	switch g := v.(type) {
	case *ir.Function:
		return validateFunction(g)
	case ir.Function:
		return validateFunction(&g)
	case *ir.Module:
		return validateModule(g)
	case ir.Module:
		return validateModule(&g)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateModule(m *ir.Module) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i := range m.Functions {
		fn := &m.Functions[i]
		if fn.Name != "" && seen[fn.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("func.%s", fn.Name),
				Message: fmt.Sprintf("duplicate function name: %q", fn.Name),
				Code:    ErrDuplicateFunction,
				Line:    fn.Loc.Line,
			})
		}
		seen[fn.Name] = true
		errs = append(errs, validateFunction(fn)...)
	}
	return errs
}

func validateFunction(fn *ir.Function) []ValidationError {
	var errs []ValidationError
	prefix := "func." + fn.Name

	// E101: name is required
	if strings.TrimSpace(fn.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "func",
			Message: "function name is required",
			Code:    ErrEmptyFunctionName,
			Line:    fn.Loc.Line,
		})
	}

	// position of each definition in program order; arguments come first
	defined := make(map[ir.ValueID]int)

	for i, arg := range fn.Args {
		field := fmt.Sprintf("%s.args[%d]", prefix, i)
		if _, dup := defined[arg.ID]; dup {
			errs = append(errs, duplicateValue(field, arg.ID, arg.Loc))
		} else {
			defined[arg.ID] = -1
		}
		if arg.Type.Kind == ir.TypeNone {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("argument %q must have a value type", arg.ID),
				Code:    ErrInvalidType,
				Line:    arg.Loc.Line,
			})
		}
		if err, ok := checkWidth(field+".type", arg.Type, arg.Loc.Line); !ok {
			errs = append(errs, err)
		}
	}

	for i := range fn.Body {
		op := &fn.Body[i]
		if !op.HasResult() {
			continue
		}
		field := fmt.Sprintf("%s.body[%d].id", prefix, i)
		if _, dup := defined[op.ID]; dup {
			errs = append(errs, duplicateValue(field, op.ID, op.Loc))
			continue
		}
		defined[op.ID] = i
	}

	cyclic := make(map[ir.ValueID]bool)
	for _, cycle := range FindCycles(fn) {
		for _, id := range cycle {
			cyclic[id] = true
		}
		errs = append(errs, ValidationError{
			Field:   prefix + ".body",
			Message: fmt.Sprintf("dependency cycle: %s", formatCycle(cycle)),
			Code:    ErrDependencyCycle,
		})
	}

	for i := range fn.Body {
		op := &fn.Body[i]
		field := fmt.Sprintf("%s.body[%d]", prefix, i)
		errs = append(errs, validateOperation(op, i, field, defined, cyclic)...)
	}

	return errs
}

func validateOperation(op *ir.Operation, pos int, field string, defined map[ir.ValueID]int, cyclic map[ir.ValueID]bool) []ValidationError {
	var errs []ValidationError
	line := op.Loc.Line

	// E113: operation name is required
	if strings.TrimSpace(op.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".op",
			Message: "operation name is required",
			Code:    ErrEmptyOperationName,
			Line:    line,
		})
	}

	// E111: id and result type go together
	switch {
	case op.HasResult() && op.Result.Kind == ir.TypeNone:
		errs = append(errs, ValidationError{
			Field:   field + ".type",
			Message: fmt.Sprintf("result %q must have a value type", op.ID),
			Code:    ErrMissingResult,
			Line:    line,
		})
	case !op.HasResult() && op.Result.Kind != ir.TypeNone:
		errs = append(errs, ValidationError{
			Field:   field + ".id",
			Message: fmt.Sprintf("%s produces %s but has no id", op.Name, op.Result),
			Code:    ErrMissingResult,
			Line:    line,
		})
	}

	if err, ok := checkWidth(field+".type", op.Result, line); !ok {
		errs = append(errs, err)
	}

	for j, operand := range op.Operands {
		opField := fmt.Sprintf("%s.operands[%d]", field, j)
		at, ok := defined[operand]
		switch {
		case !ok:
			// E103: undefined operand
			errs = append(errs, ValidationError{
				Field:   opField,
				Message: fmt.Sprintf("undefined value %q", operand),
				Code:    ErrUndefinedOperand,
				Line:    line,
			})
		case at >= pos && !cyclic[operand]:
			// E104: defined later; cycles are reported once as E110
			errs = append(errs, ValidationError{
				Field:   opField,
				Message: fmt.Sprintf("value %q used before its definition", operand),
				Code:    ErrUseBeforeDef,
				Line:    line,
			})
		}
	}

	if op.Kind() == ir.OpConstant {
		errs = append(errs, validateConstant(op, field)...)
	} else if op.Value != nil {
		// E109: payloads belong to constants only
		errs = append(errs, ValidationError{
			Field:   field + ".value",
			Message: fmt.Sprintf("%s does not take a literal value", op.Name),
			Code:    ErrUnexpectedLiteral,
			Line:    line,
		})
	}

	return errs
}

func validateConstant(op *ir.Operation, field string) []ValidationError {
	line := op.Loc.Line

	if !op.Result.IsInteger() {
		// E105: constants are plaintext integers
		return []ValidationError{{
			Field:   field + ".type",
			Message: fmt.Sprintf("constant must have an integer type, got %s", op.Result),
			Code:    ErrInvalidType,
			Line:    line,
		}}
	}

	// E106: payload is required
	if op.Value == nil {
		return []ValidationError{{
			Field:   field + ".value",
			Message: fmt.Sprintf("constant %q has no value", op.ID),
			Code:    ErrMissingLiteral,
			Line:    line,
		}}
	}

	// E107: scalar payload for scalar type, dense payload of NumElements for tensors
	_, dense := op.Value.(ir.DenseIntAttr)
	if dense != op.Result.IsTensor() || (dense && int64(op.Value.Len()) != op.Result.NumElements()) {
		return []ValidationError{{
			Field: field + ".value",
			Message: fmt.Sprintf("value with %d element(s) does not match type %s",
				op.Value.Len(), op.Result),
			Code: ErrLiteralShape,
			Line: line,
		}}
	}

	// E108: every element fits the element width
	if !ir.FitsWidth(op.Value, op.Result.Width) {
		return []ValidationError{{
			Field:   field + ".value",
			Message: fmt.Sprintf("value does not fit in %d bits", op.Result.Width),
			Code:    ErrLiteralOutOfRange,
			Line:    line,
		}}
	}

	return nil
}

// checkWidth reports E105 for an element width no program may declare.
func checkWidth(field string, t ir.Type, line int) (ValidationError, bool) {
	if t.Width <= ir.MaxBitWidth {
		return ValidationError{}, true
	}
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("bit width %d exceeds %d", t.Width, ir.MaxBitWidth),
		Code:    ErrInvalidType,
		Line:    line,
	}, false
}

func duplicateValue(field string, id ir.ValueID, loc ir.Location) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("duplicate definition of %q", id),
		Code:    ErrDuplicateValue,
		Line:    loc.Line,
	}
}
