package compiler

import (
	"fmt"
	"math/big"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/manp/internal/ir"
)

// CompileModule parses every function under the top-level "functions" struct of a
// CUE value, in declaration order.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`functions: main: { args: [...], body: [...] }`)
//	mod, err := CompileModule(v)
func CompileModule(v cue.Value) (*ir.Module, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	funcsVal := v.LookupPath(cue.ParsePath("functions"))
	if !funcsVal.Exists() {
		return &ir.Module{}, nil
	}

	iter, err := funcsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	mod := &ir.Module{}
	for iter.Next() {
		fn, err := CompileFunction(iter.Value())
		if err != nil {
			return nil, err
		}
		mod.Functions = append(mod.Functions, *fn)
	}
	return mod, nil
}

// CompileFunction parses a CUE value into a Function graph.
// The function name is taken from the value's struct label.
//
// The value must have a "body" list; "args" is optional:
//
//	functions: main: {
//		args: [{name: "x", type: "eint<7>"}]
//		body: [
//			{id: "c", op: "arith.constant", type: "i8", value: 5},
//			{id: "r", op: "fhe.add_eint_int", operands: ["x", "c"], type: "eint<7>"},
//			{op: "func.return", operands: ["r"]},
//		]
//	}
func CompileFunction(v cue.Value) (*ir.Function, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	fn := &ir.Function{Loc: toLocation(v.Pos())}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		fn.Name = labels[len(labels)-1].String()
	}

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if argsVal.Exists() {
		args, err := parseArgs(argsVal)
		if err != nil {
			return nil, err
		}
		fn.Args = args
	}

	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return nil, &CompileError{
			Field:   "body",
			Message: "function body is required",
			Pos:     v.Pos(),
		}
	}
	body, err := parseBody(bodyVal)
	if err != nil {
		return nil, err
	}
	fn.Body = body

	return fn, nil
}

func parseArgs(v cue.Value) ([]ir.Argument, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var args []ir.Argument
	for i := 0; iter.Next(); i++ {
		argVal := iter.Value()
		field := fmt.Sprintf("args[%d]", i)

		name, err := requiredString(argVal, "name", field)
		if err != nil {
			return nil, err
		}
		typ, err := parseTypeField(argVal, field)
		if err != nil {
			return nil, err
		}

		args = append(args, ir.Argument{
			ID:   ir.ValueID(name),
			Type: typ,
			Loc:  toLocation(argVal.Pos()),
		})
	}
	return args, nil
}

func parseBody(v cue.Value) ([]ir.Operation, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var body []ir.Operation
	for i := 0; iter.Next(); i++ {
		op, err := parseOperation(iter.Value(), fmt.Sprintf("body[%d]", i))
		if err != nil {
			return nil, err
		}
		body = append(body, op)
	}
	return body, nil
}

func parseOperation(v cue.Value, field string) (ir.Operation, error) {
	op := ir.Operation{Loc: toLocation(v.Pos())}

	name, err := requiredString(v, "op", field)
	if err != nil {
		return op, err
	}
	op.Name = name

	// id is absent for result-less operations such as func.return
	idVal := v.LookupPath(cue.ParsePath("id"))
	if idVal.Exists() {
		id, err := idVal.String()
		if err != nil {
			return op, formatCUEError(err)
		}
		op.ID = ir.ValueID(id)
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if typeVal.Exists() {
		op.Result, err = parseTypeField(v, field)
		if err != nil {
			return op, err
		}
	}

	operandsVal := v.LookupPath(cue.ParsePath("operands"))
	if operandsVal.Exists() {
		iter, err := operandsVal.List()
		if err != nil {
			return op, formatCUEError(err)
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return op, formatCUEError(err)
			}
			op.Operands = append(op.Operands, ir.ValueID(s))
		}
	}

	valueVal := v.LookupPath(cue.ParsePath("value"))
	if valueVal.Exists() {
		op.Value, err = parseLiteral(valueVal, field+".value")
		if err != nil {
			return op, err
		}
	}

	return op, nil
}

// parseLiteral converts an integer or a list of integers into a payload.
// Floats are forbidden: a literal must be exact.
func parseLiteral(v cue.Value, field string) (ir.Attr, error) {
	switch v.IncompleteKind() {
	case cue.IntKind:
		n, err := v.Int(nil)
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IntAttr{V: n}, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var vals []*big.Int
		for i := 0; iter.Next(); i++ {
			elem := iter.Value()
			if elem.IncompleteKind() != cue.IntKind {
				return nil, &CompileError{
					Field:   fmt.Sprintf("%s[%d]", field, i),
					Message: fmt.Sprintf("literal elements must be integers, got %v", elem.IncompleteKind()),
					Pos:     elem.Pos(),
				}
			}
			n, err := elem.Int(nil)
			if err != nil {
				return nil, formatCUEError(err)
			}
			vals = append(vals, n)
		}
		return ir.DenseIntAttr{Values: vals}, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float literals are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported literal kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func parseTypeField(v cue.Value, field string) (ir.Type, error) {
	s, err := requiredString(v, "type", field)
	if err != nil {
		return ir.Type{}, err
	}
	t, err := ir.ParseType(s)
	if err != nil {
		return ir.Type{}, &CompileError{
			Field:   field + ".type",
			Message: err.Error(),
			Pos:     v.LookupPath(cue.ParsePath("type")).Pos(),
		}
	}
	return t, nil
}

func requiredString(v cue.Value, key, field string) (string, error) {
	val := v.LookupPath(cue.ParsePath(key))
	if !val.Exists() {
		return "", &CompileError{
			Field:   field + "." + key,
			Message: key + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// toLocation converts a CUE position into a graph location.
func toLocation(pos token.Pos) ir.Location {
	if !pos.IsValid() {
		return ir.Location{}
	}
	return ir.Location{
		File:   pos.Filename(),
		Line:   pos.Line(),
		Column: pos.Column(),
	}
}
