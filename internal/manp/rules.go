package manp

import (
	"github.com/roach88/manp/internal/apint"
	"github.com/roach88/manp/internal/ir"
)

// rule computes the squared norm bound of an operation's result from the
// bounds of its encrypted operands and the literals or types of its
// plaintext operands. Rules only read analyzer state.
type rule func(a *analyzer, op *ir.Operation) (apint.APInt, error)

// rules holds one rule per operator of the fhe family. Every kind listed in
// ir.FHEKinds must have an entry; a kind without one is rejected as
// unsupported rather than skipped.
var rules = map[ir.OpKind]rule{
	ir.OpZero:             resetRule,
	ir.OpApplyLookupTable: resetRule,
	ir.OpAddEint:          addEintRule,
	ir.OpAddEintInt:       encIntSumRule(0, 1),
	ir.OpSubIntEint:       encIntSumRule(1, 0),
	ir.OpMulEintInt:       mulEintIntRule,
	ir.OpDotEintInt:       dotEintIntRule,
}

// resetRule: zero-initialization and table lookup produce a freshly
// bootstrapped ciphertext, whatever their inputs.
func resetRule(*analyzer, *ir.Operation) (apint.APInt, error) {
	return apint.One(), nil
}

// addEintRule: p + q.
func addEintRule(a *analyzer, op *ir.Operation) (apint.APInt, error) {
	if err := a.wantOperands(op, 2); err != nil {
		return apint.APInt{}, err
	}
	p, err := a.encryptedNorm(op, 0)
	if err != nil {
		return apint.APInt{}, err
	}
	q, err := a.encryptedNorm(op, 1)
	if err != nil {
		return apint.APInt{}, err
	}
	return apint.Add(p, q), nil
}

// encIntSumRule builds the rule sq(int) + enc for operators whose encrypted
// and plaintext operands sit at the given positions. The sign of the
// plaintext term does not matter for the norm.
func encIntSumRule(encIdx, intIdx int) rule {
	return func(a *analyzer, op *ir.Operation) (apint.APInt, error) {
		if err := a.wantOperands(op, 2); err != nil {
			return apint.APInt{}, err
		}
		enc, err := a.encryptedNorm(op, encIdx)
		if err != nil {
			return apint.APInt{}, err
		}
		k2, err := a.scalarSquare(op, intIdx)
		if err != nil {
			return apint.APInt{}, err
		}
		return apint.Add(k2, enc), nil
	}
}

// mulEintIntRule: sq(int) × enc.
func mulEintIntRule(a *analyzer, op *ir.Operation) (apint.APInt, error) {
	if err := a.wantOperands(op, 2); err != nil {
		return apint.APInt{}, err
	}
	enc, err := a.encryptedNorm(op, 0)
	if err != nil {
		return apint.APInt{}, err
	}
	k2, err := a.scalarSquare(op, 1)
	if err != nil {
		return apint.APInt{}, err
	}
	return apint.Mul(k2, enc), nil
}

// dotEintIntRule: Σ cᵢ² for a constant weight vector, n × maxValue(w)² for a
// dynamic one of n elements of w bits. Only the plaintext side contributes;
// the encrypted vector must be a block argument, whose elements carry the
// baseline norm.
func dotEintIntRule(a *analyzer, op *ir.Operation) (apint.APInt, error) {
	if err := a.wantOperands(op, 2); err != nil {
		return apint.APInt{}, err
	}

	encDef, ok := a.defs[op.Operands[0]]
	if ok && encDef.Arg == nil {
		return apint.APInt{}, NewUnsupportedError(a.fn, op,
			"encrypted operand of a dot product must be a block argument")
	}
	if _, err := a.encryptedNorm(op, 0); err != nil {
		return apint.APInt{}, err
	}

	id := op.Operands[1]
	def, ok := a.defs[id]
	if !ok {
		return apint.APInt{}, NewMalformedError(a.fn, op, "operand %q is not defined", id)
	}
	t := def.Type()
	if !t.IsInteger() {
		return apint.APInt{}, NewMalformedError(a.fn, op, "operand %q must be a plaintext integer tensor, got %s", id, t)
	}

	if lit, isConst := a.literal(def); isConst {
		if lit == nil {
			return apint.APInt{}, NewMalformedError(a.fn, op, "constant %q has no value", id)
		}
		terms := make([]apint.APInt, 0, lit.Len())
		for i, c := range ir.Ints(lit) {
			if c == nil {
				return apint.APInt{}, NewMalformedError(a.fn, op, "constant %q has no value at index %d", id, i)
			}
			terms = append(terms, apint.Square(apint.FromBig(c, uint(t.Width))))
		}
		return apint.Sum(terms...), nil
	}

	if t.Rank() != 1 || t.Shape[0] < 0 {
		return apint.APInt{}, NewMalformedError(a.fn, op,
			"operand %q must be a statically shaped 1-D tensor, got %s", id, t)
	}
	if err := a.reserve(op, id, t, 2*uint64(t.Width)+uint64(apint.WidthForCount(uint64(t.Shape[0])))); err != nil {
		return apint.APInt{}, err
	}
	n := apint.ForCount(uint64(t.Shape[0]))
	return apint.Mul(n, apint.Square(apint.MaxValue(uint(t.Width)))), nil
}

// wantOperands checks the operand count of op.
func (a *analyzer) wantOperands(op *ir.Operation, n int) error {
	if len(op.Operands) != n {
		return NewMalformedError(a.fn, op, "%s expects %d operands, got %d", op.Name, n, len(op.Operands))
	}
	return nil
}

// encryptedNorm returns the recorded bound of operand idx.
func (a *analyzer) encryptedNorm(op *ir.Operation, idx int) (apint.APInt, error) {
	id := op.Operands[idx]
	norm, ok := a.norms[id]
	if !ok {
		return apint.APInt{}, NewMalformedError(a.fn, op, "no norm bound for encrypted operand %q", id)
	}
	return norm, nil
}

// scalarSquare resolves sq(int) for plaintext operand idx: the exact square
// of the literal when a constant produces it, else the square of the largest
// value its bit width can hold.
func (a *analyzer) scalarSquare(op *ir.Operation, idx int) (apint.APInt, error) {
	id := op.Operands[idx]
	def, ok := a.defs[id]
	if !ok {
		return apint.APInt{}, NewMalformedError(a.fn, op, "operand %q is not defined", id)
	}
	t := def.Type()
	if !t.IsInteger() || t.IsTensor() {
		return apint.APInt{}, NewMalformedError(a.fn, op, "operand %q must be a plaintext integer scalar, got %s", id, t)
	}

	if lit, isConst := a.literal(def); isConst {
		scalar, ok := lit.(ir.IntAttr)
		if !ok || scalar.V == nil {
			return apint.APInt{}, NewMalformedError(a.fn, op, "constant %q has no scalar value", id)
		}
		return apint.Square(apint.FromBig(scalar.V, uint(t.Width))), nil
	}
	if err := a.reserve(op, id, t, 2*uint64(t.Width)); err != nil {
		return apint.APInt{}, err
	}
	return apint.Square(apint.MaxValue(uint(t.Width))), nil
}

// reserve checks the width of a bound derived from the type t of plaintext
// operand id before the bound is built. The predicted width must respect
// Config.MaxBits and the element width must be one a program can declare.
func (a *analyzer) reserve(op *ir.Operation, id ir.ValueID, t ir.Type, width uint64) error {
	if limit := uint64(a.cfg.MaxBits); limit > 0 && width > limit {
		return NewWidthOverflowError(a.fn, op, width, limit)
	}
	if t.Width > ir.MaxBitWidth {
		return newDiagnostic(ErrCodeWidthOverflow, a.fn, op,
			"operand %q has element width %d, limit is %d", id, t.Width, ir.MaxBitWidth)
	}
	return nil
}

// literal reports whether def is produced by a constant, and its payload.
func (a *analyzer) literal(def ir.Def) (ir.Attr, bool) {
	if def.Op == nil || def.Op.Kind() != ir.OpConstant {
		return nil, false
	}
	return def.Op.Value, true
}
