package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manp/internal/ir"
)

func validFunction() *ir.Function {
	b := ir.NewBuilder("main")
	x := b.Arg("x", ir.EncryptedInt(7))
	c := b.Constant(ir.Int(8), ir.NewIntAttr(5))
	w := b.Constant(ir.Tensor(ir.Int(3), 3), ir.NewDenseIntAttr(1, 2, 3))
	v := b.Arg("v", ir.Tensor(ir.EncryptedInt(6), 3))
	r := b.Op(ir.NameAddEintInt, ir.EncryptedInt(7), x, c)
	d := b.Op(ir.NameDotEintInt, ir.EncryptedInt(6), v, w)
	b.Return(r, d)
	return b.Function()
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateFunctionValid(t *testing.T) {
	errs := Validate(validFunction())
	assert.Empty(t, errs, "valid function should have no errors")
}

func TestValidateFunctionByValue(t *testing.T) {
	errs := Validate(*validFunction())
	assert.Empty(t, errs)
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("not a graph")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}

func TestValidateEmptyName(t *testing.T) {
	fn := validFunction()
	fn.Name = " "
	assert.Contains(t, codes(Validate(fn)), ErrEmptyFunctionName)
}

func TestValidateDuplicateValue(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Args: []ir.Argument{{ID: "x", Type: ir.EncryptedInt(4)}},
		Body: []ir.Operation{
			{ID: "x", Name: ir.NameZero, Result: ir.EncryptedInt(4)},
		},
	}

	errs := Validate(fn)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateValue, errs[0].Code)
	assert.Equal(t, "func.f.body[0].id", errs[0].Field)
}

func TestValidateUndefinedOperand(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Operation{
			{ID: "a", Name: ir.NameAddEint, Operands: []ir.ValueID{"ghost", "ghost"}, Result: ir.EncryptedInt(4), Loc: ir.Location{File: "p.cue", Line: 7}},
		},
	}

	errs := Validate(fn)
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.Equal(t, ErrUndefinedOperand, e.Code)
		assert.Equal(t, 7, e.Line)
	}
	assert.Contains(t, errs[0].Error(), "line 7")
}

func TestValidateUseBeforeDef(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Operation{
			{ID: "b", Name: ir.NameAddEint, Operands: []ir.ValueID{"a", "a"}, Result: ir.EncryptedInt(4)},
			{ID: "a", Name: ir.NameZero, Result: ir.EncryptedInt(4)},
		},
	}

	assert.Equal(t, []string{ErrUseBeforeDef, ErrUseBeforeDef}, codes(Validate(fn)))
}

func TestValidateCycleReportedOnce(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Operation{
			{ID: "a", Name: ir.NameAddEint, Operands: []ir.ValueID{"b", "b"}, Result: ir.EncryptedInt(4)},
			{ID: "b", Name: ir.NameAddEint, Operands: []ir.ValueID{"a", "a"}, Result: ir.EncryptedInt(4)},
		},
	}

	errs := Validate(fn)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDependencyCycle, errs[0].Code)
	assert.Contains(t, errs[0].Message, "→")
}

func TestValidateConstants(t *testing.T) {
	tests := []struct {
		name string
		op   ir.Operation
		code string
	}{
		{
			name: "missing value",
			op:   ir.Operation{ID: "c", Name: ir.NameConstant, Result: ir.Int(8)},
			code: ErrMissingLiteral,
		},
		{
			name: "encrypted constant",
			op:   ir.Operation{ID: "c", Name: ir.NameConstant, Result: ir.EncryptedInt(8), Value: ir.NewIntAttr(1)},
			code: ErrInvalidType,
		},
		{
			name: "dense on scalar",
			op:   ir.Operation{ID: "c", Name: ir.NameConstant, Result: ir.Int(8), Value: ir.NewDenseIntAttr(1)},
			code: ErrLiteralShape,
		},
		{
			name: "wrong element count",
			op:   ir.Operation{ID: "c", Name: ir.NameConstant, Result: ir.Tensor(ir.Int(8), 4), Value: ir.NewDenseIntAttr(1, 2)},
			code: ErrLiteralShape,
		},
		{
			name: "scalar on tensor",
			op:   ir.Operation{ID: "c", Name: ir.NameConstant, Result: ir.Tensor(ir.Int(8), 1), Value: ir.NewIntAttr(1)},
			code: ErrLiteralShape,
		},
		{
			name: "out of range",
			op:   ir.Operation{ID: "c", Name: ir.NameConstant, Result: ir.Int(3), Value: ir.NewIntAttr(8)},
			code: ErrLiteralOutOfRange,
		},
		{
			name: "negative out of range",
			op:   ir.Operation{ID: "c", Name: ir.NameConstant, Result: ir.Int(3), Value: ir.NewIntAttr(-5)},
			code: ErrLiteralOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := &ir.Function{Name: "f", Body: []ir.Operation{tt.op}}
			assert.Equal(t, []string{tt.code}, codes(Validate(fn)))
		})
	}
}

func TestValidateUnexpectedLiteral(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Operation{
			{ID: "z", Name: ir.NameZero, Result: ir.EncryptedInt(4), Value: ir.NewIntAttr(0)},
		},
	}
	assert.Equal(t, []string{ErrUnexpectedLiteral}, codes(Validate(fn)))
}

func TestValidateResultShape(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Args: []ir.Argument{{ID: "x", Type: ir.None}},
		Body: []ir.Operation{
			{ID: "a", Name: ir.NameZero, Result: ir.None},
			{Name: ir.NameZero, Result: ir.EncryptedInt(4)},
			{ID: "b", Result: ir.EncryptedInt(4)},
		},
	}

	got := codes(Validate(fn))
	assert.Equal(t, []string{ErrInvalidType, ErrMissingResult, ErrMissingResult, ErrEmptyOperationName}, got)
}

func TestValidateAllErrorsCollected(t *testing.T) {
	fn := &ir.Function{
		Name: "",
		Body: []ir.Operation{
			{ID: "c", Name: ir.NameConstant, Result: ir.Int(8)},
			{ID: "r", Name: ir.NameAddEint, Operands: []ir.ValueID{"nope", "c"}, Result: ir.EncryptedInt(4)},
		},
	}

	got := codes(Validate(fn))
	assert.ElementsMatch(t, []string{ErrEmptyFunctionName, ErrMissingLiteral, ErrUndefinedOperand}, got)
}

func TestValidateModuleDuplicateFunction(t *testing.T) {
	fn := *validFunction()
	mod := &ir.Module{Functions: []ir.Function{fn, fn}}

	assert.Equal(t, []string{ErrDuplicateFunction}, codes(Validate(mod)))
}

func TestValidateWidthCap(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Args: []ir.Argument{
			{ID: "x", Type: ir.EncryptedInt(4)},
			{ID: "y", Type: ir.Int(ir.MaxBitWidth + 1)},
		},
		Body: []ir.Operation{
			{ID: "r", Name: ir.NameAddEintInt, Result: ir.EncryptedInt(ir.MaxBitWidth + 1), Operands: []ir.ValueID{"x", "y"}},
		},
	}

	errs := Validate(fn)
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.Equal(t, ErrInvalidType, e.Code)
		assert.Contains(t, e.Message, "exceeds")
	}
	assert.Equal(t, "func.f.args[1].type", errs[0].Field)
	assert.Equal(t, "func.f.body[0].type", errs[1].Field)

	fn.Args[1].Type = ir.Int(ir.MaxBitWidth)
	fn.Body[0].Result = ir.EncryptedInt(4)
	assert.Empty(t, Validate(fn))
}
