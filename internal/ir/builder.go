package ir

import "fmt"

// Builder constructs a Function programmatically, appending operations in
// program order. Result IDs are generated as %0, %1, ... unless named.
//
//	b := ir.NewBuilder("main")
//	x := b.Arg("x", ir.EncryptedInt(7))
//	c := b.Constant(ir.Int(8), ir.NewIntAttr(5))
//	r := b.Op(ir.NameAddEintInt, ir.EncryptedInt(7), x, c)
//	b.Return(r)
//	fn := b.Function()
type Builder struct {
	fn   Function
	next int
}

// NewBuilder starts a function with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{fn: Function{Name: name}}
}

// Arg appends a block argument.
func (b *Builder) Arg(name string, t Type) ValueID {
	id := ValueID(name)
	b.fn.Args = append(b.fn.Args, Argument{ID: id, Type: t})
	return id
}

// Op appends an operation with a generated result ID.
func (b *Builder) Op(name string, result Type, operands ...ValueID) ValueID {
	return b.NamedOp(b.fresh(), name, result, operands...)
}

// NamedOp appends an operation whose result is called id.
func (b *Builder) NamedOp(id ValueID, name string, result Type, operands ...ValueID) ValueID {
	b.fn.Body = append(b.fn.Body, Operation{
		ID:       id,
		Name:     name,
		Operands: operands,
		Result:   result,
	})
	return id
}

// Constant appends an arith.constant carrying the given payload.
func (b *Builder) Constant(t Type, value Attr) ValueID {
	id := b.fresh()
	b.fn.Body = append(b.fn.Body, Operation{
		ID:     id,
		Name:   NameConstant,
		Result: t,
		Value:  value,
	})
	return id
}

// Return appends a result-less func.return.
func (b *Builder) Return(operands ...ValueID) {
	b.fn.Body = append(b.fn.Body, Operation{
		Name:     "func.return",
		Operands: operands,
		Result:   None,
	})
}

// Function returns the built function. The builder must not be used after.
func (b *Builder) Function() *Function {
	fn := b.fn
	return &fn
}

func (b *Builder) fresh() ValueID {
	id := ValueID(fmt.Sprintf("%%%d", b.next))
	b.next++
	return id
}
