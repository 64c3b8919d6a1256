package manp

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manp/internal/ir"
)

var (
	eint7 = ir.EncryptedInt(7)
	i8    = ir.Int(8)
)

func assertNorm(t *testing.T, ann *Annotations, id ir.ValueID, wantSq, wantMANP string) {
	t.Helper()
	sq, ok := ann.SquaredNorm(id)
	require.True(t, ok, "no entry for %s", id)
	m, ok := ann.MANP(id)
	require.True(t, ok)
	assert.Equal(t, wantSq, sq.String(), "squared norm of %s", id)
	assert.Equal(t, wantMANP, m.String(), "MANP of %s", id)
}

func TestAnalyze_BlockArgumentBaseline(t *testing.T) {
	// x × 1 exposes the seeded bound of x unchanged
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	one := b.Constant(i8, ir.NewIntAttr(1))
	r := b.NamedOp("r", ir.NameMulEintInt, eint7, x, one)
	b.Return(r)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)

	assertNorm(t, ann, "r", "1", "1")
	_, isEntry := ann.MANP(x)
	assert.False(t, isEntry, "block arguments are not entries")
}

func TestAnalyze_AddEintIntConstant(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	c := b.Constant(i8, ir.NewIntAttr(5))
	r := b.NamedOp("r", ir.NameAddEintInt, eint7, x, c)
	b.Return(r)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)

	// 5² + 1 = 26, and 5² < 26 ≤ 6²
	assertNorm(t, ann, "r", "26", "6")
	assert.Equal(t, 1, ann.Len())
}

func TestAnalyze_AddEintSumsBounds(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	c := b.Constant(i8, ir.NewIntAttr(3))
	p := b.NamedOp("p", ir.NameMulEintInt, eint7, x, c)
	q := b.NamedOp("q", ir.NameAddEintInt, eint7, x, c)
	s := b.NamedOp("s", ir.NameAddEint, eint7, p, q)
	b.Return(s)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)

	assertNorm(t, ann, "p", "9", "3")
	assertNorm(t, ann, "q", "10", "4")
	assertNorm(t, ann, "s", "19", "5")
}

func TestAnalyze_MulByConstantScales(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	five := b.Constant(i8, ir.NewIntAttr(5))
	four := b.Constant(i8, ir.NewIntAttr(4))
	p := b.NamedOp("p", ir.NameAddEintInt, eint7, x, five)
	r := b.NamedOp("r", ir.NameMulEintInt, eint7, p, four)
	b.Return(r)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)

	// k² · p = 16 · 26
	assertNorm(t, ann, "r", "416", "21")
}

func TestAnalyze_SubIntEintUsesMagnitude(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	c := b.Constant(i8, ir.NewIntAttr(-3))
	r := b.NamedOp("r", ir.NameSubIntEint, eint7, c, x)
	b.Return(r)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)
	assertNorm(t, ann, "r", "10", "4")
}

func TestAnalyze_DynamicScalarUsesMaxValue(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	y := b.Arg("y", i8)
	r := b.NamedOp("r", ir.NameAddEintInt, eint7, x, y)
	m := b.NamedOp("m", ir.NameMulEintInt, eint7, x, y)
	b.Return(r, m)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)

	// 255² + 1 and 255² · 1
	assertNorm(t, ann, "r", "65026", "256")
	assertNorm(t, ann, "m", "65025", "255")
}

func TestAnalyze_DotConstantVector(t *testing.T) {
	b := ir.NewBuilder("main")
	v := b.Arg("v", ir.Tensor(ir.EncryptedInt(6), 3))
	w := b.Constant(ir.Tensor(ir.Int(3), 3), ir.NewDenseIntAttr(1, 2, 3))
	d := b.NamedOp("d", ir.NameDotEintInt, ir.EncryptedInt(6), v, w)
	b.Return(d)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)

	// 1 + 4 + 9 = 14, and 3² < 14 ≤ 4²
	assertNorm(t, ann, "d", "14", "4")
}

func TestAnalyze_DotNegativeWeights(t *testing.T) {
	b := ir.NewBuilder("main")
	v := b.Arg("v", ir.Tensor(ir.EncryptedInt(6), 2))
	w := b.Constant(ir.Tensor(ir.Int(3), 2), ir.NewDenseIntAttr(-2, 3))
	d := b.NamedOp("d", ir.NameDotEintInt, ir.EncryptedInt(6), v, w)
	b.Return(d)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)
	assertNorm(t, ann, "d", "13", "4")
}

func TestAnalyze_DotDynamicVector(t *testing.T) {
	b := ir.NewBuilder("main")
	v := b.Arg("v", ir.Tensor(ir.EncryptedInt(8), 4))
	w := b.Arg("w", ir.Tensor(i8, 4))
	d := b.NamedOp("d", ir.NameDotEintInt, ir.EncryptedInt(8), v, w)
	b.Return(d)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)

	// 4 × 255² = 260100, and 510² = 260100
	assertNorm(t, ann, "d", "260100", "510")
}

func TestAnalyze_ResetOperators(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	y := b.Arg("y", i8)
	noisy := b.NamedOp("noisy", ir.NameMulEintInt, eint7, x, y)
	lut := b.NamedOp("lut", ir.NameApplyLookupTable, eint7, noisy)
	z := b.NamedOp("z", ir.NameZero, eint7)
	s := b.NamedOp("s", ir.NameAddEint, eint7, lut, z)
	b.Return(s)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)

	assertNorm(t, ann, "lut", "1", "1")
	assertNorm(t, ann, "z", "1", "1")
	assertNorm(t, ann, "s", "2", "2")
}

func TestAnalyze_InertOperations(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	c := b.Constant(i8, ir.NewIntAttr(2))
	e := b.NamedOp("e", "tensor.from_elements", ir.Tensor(eint7, 1), x)
	r := b.NamedOp("r", ir.NameAddEintInt, eint7, x, c)
	b.Return(r, e)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)

	assert.Equal(t, 1, ann.Len())
	_, ok := ann.Entry(c)
	assert.False(t, ok, "constants are inert")
	_, ok = ann.Entry(e)
	assert.False(t, ok, "foreign operations are not tracked")
}

func TestAnalyze_UnsupportedOperationAborts(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	c := b.Constant(i8, ir.NewIntAttr(2))
	ok := b.NamedOp("ok", ir.NameAddEintInt, eint7, x, c)
	neg := b.NamedOp("neg", "fhe.neg_eint", eint7, ok)
	dep := b.NamedOp("dep", ir.NameAddEint, eint7, neg, ok)
	b.Return(dep)
	fn := b.Function()
	fn.Body[2].Loc = ir.Location{File: "p.cue", Line: 9, Column: 3}

	ann, err := Analyze(fn, Config{})
	require.Error(t, err)
	assert.Nil(t, ann, "no annotations on failure")
	assert.True(t, IsUnsupported(err))
	assert.False(t, IsMalformed(err))

	var d *Diagnostic
	require.ErrorAs(t, err, &d)
	assert.Equal(t, "main", d.Function)
	assert.Equal(t, "fhe.neg_eint", d.Op)
	assert.Equal(t, ir.ValueID("neg"), d.Value)
	assert.Equal(t, 9, d.Loc.Line)
	assert.Contains(t, err.Error(), "p.cue:9:3: UNSUPPORTED_OPERATION")
	assert.Contains(t, err.Error(), "op=fhe.neg_eint")
}

func TestRules_CoverEveryFHEKind(t *testing.T) {
	for _, k := range ir.FHEKinds() {
		assert.NotNil(t, rules[k], "operator %s has no noise rule", k)
	}
	assert.Len(t, rules, len(ir.FHEKinds()), "rules must only cover fhe operators")
	assert.Nil(t, rules[ir.OpConstant])
	assert.Nil(t, rules[ir.OpUnknown])
}

func TestAnalyze_MalformedGraphs(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ir.Builder)
	}{
		{
			name: "operand without bound",
			build: func(b *ir.Builder) {
				x := b.Arg("x", eint7)
				e := b.NamedOp("e", "tensor.extract", eint7, x)
				b.NamedOp("r", ir.NameAddEint, eint7, e, x)
			},
		},
		{
			name: "constant without payload",
			build: func(b *ir.Builder) {
				x := b.Arg("x", eint7)
				c := b.NamedOp("c", ir.NameConstant, i8)
				b.NamedOp("r", ir.NameAddEintInt, eint7, x, c)
			},
		},
		{
			name: "wrong operand count",
			build: func(b *ir.Builder) {
				x := b.Arg("x", eint7)
				b.NamedOp("r", ir.NameAddEint, eint7, x)
			},
		},
		{
			name: "duplicate result",
			build: func(b *ir.Builder) {
				b.NamedOp("z", ir.NameZero, eint7)
				b.NamedOp("z", ir.NameZero, eint7)
			},
		},
		{
			name: "undefined plaintext operand",
			build: func(b *ir.Builder) {
				x := b.Arg("x", eint7)
				b.NamedOp("r", ir.NameMulEintInt, eint7, x, "ghost")
			},
		},
		{
			name: "tensor where scalar expected",
			build: func(b *ir.Builder) {
				x := b.Arg("x", eint7)
				y := b.Arg("y", ir.Tensor(i8, 2))
				b.NamedOp("r", ir.NameMulEintInt, eint7, x, y)
			},
		},
		{
			name: "dynamic dot of rank 2",
			build: func(b *ir.Builder) {
				v := b.Arg("v", ir.Tensor(eint7, 2, 2))
				w := b.Arg("w", ir.Tensor(i8, 2, 2))
				b.NamedOp("d", ir.NameDotEintInt, eint7, v, w)
			},
		},
		{
			name: "dot with encrypted weights",
			build: func(b *ir.Builder) {
				v := b.Arg("v", ir.Tensor(eint7, 2))
				w := b.Arg("w", ir.Tensor(eint7, 2))
				b.NamedOp("d", ir.NameDotEintInt, eint7, v, w)
			},
		},
		{
			name: "result-less fhe operation",
			build: func(b *ir.Builder) {
				b.NamedOp("", ir.NameZero, ir.None)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ir.NewBuilder("main")
			tt.build(b)

			ann, err := Analyze(b.Function(), Config{})
			require.Error(t, err)
			assert.Nil(t, ann)
			assert.True(t, IsMalformed(err), "got %v", err)
		})
	}
}

func TestAnalyze_DotRequiresBlockArgument(t *testing.T) {
	b := ir.NewBuilder("main")
	v := b.Arg("v", ir.Tensor(eint7, 3))
	lut := b.NamedOp("lut", ir.NameApplyLookupTable, ir.Tensor(eint7, 3), v)
	w := b.Constant(ir.Tensor(ir.Int(3), 3), ir.NewDenseIntAttr(1, 2, 3))
	b.NamedOp("d", ir.NameDotEintInt, eint7, lut, w)

	_, err := Analyze(b.Function(), Config{})
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
	assert.Contains(t, err.Error(), "block argument")
}

func TestAnalyze_MaxBits(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	y := b.Arg("y", i8)
	b.NamedOp("r", ir.NameAddEintInt, eint7, x, y)

	_, err := Analyze(b.Function(), Config{MaxBits: 8})
	require.Error(t, err)
	assert.True(t, IsWidthOverflow(err))
	assert.Contains(t, err.Error(), "limit is 8")

	ann, err := Analyze(b.Function(), Config{MaxBits: 64})
	require.NoError(t, err)
	assertNorm(t, ann, "r", "65026", "256")
}

func TestAnalyze_Idempotent(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	v := b.Arg("v", ir.Tensor(ir.EncryptedInt(8), 4))
	w := b.Arg("w", ir.Tensor(i8, 4))
	c := b.Constant(i8, ir.NewIntAttr(5))
	r := b.NamedOp("r", ir.NameAddEintInt, eint7, x, c)
	d := b.NamedOp("d", ir.NameDotEintInt, ir.EncryptedInt(8), v, w)
	b.Return(r, d)
	fn := b.Function()

	first, err := Analyze(fn, Config{})
	require.NoError(t, err)
	second, err := Analyze(fn, Config{})
	require.NoError(t, err)

	assert.Equal(t, first.Records(), second.Records())

	j1, err := json.Marshal(first)
	require.NoError(t, err)
	j2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(j1), string(j2))
}

func TestAnalyze_TraceAndLogging(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	c := b.Constant(i8, ir.NewIntAttr(5))
	r := b.NamedOp("r", ir.NameAddEintInt, eint7, x, c)
	b.Return(r)
	fn := b.Function()
	fn.Body[1].Loc = ir.Location{File: "main.cue", Line: 4, Column: 3}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ann, err := Analyze(fn, Config{EmitTrace: true, Logger: logger})
	require.NoError(t, err)

	trace := ann.Trace()
	require.Len(t, trace, 1)
	assert.Equal(t, ir.ValueID("r"), trace[0].Value)

	var out strings.Builder
	require.NoError(t, ann.WriteTrace(&out))
	assert.Equal(t, "main.cue:4:3: remark: squared Minimal Arithmetic Noise Padding: 26 (MANP 6)\n", out.String())

	assert.Contains(t, logs.String(), "squared Minimal Arithmetic Noise Padding")
	assert.Contains(t, logs.String(), "sq_norm=26")

	quiet, err := Analyze(fn, Config{})
	require.NoError(t, err)
	assert.Empty(t, quiet.Trace())
}

func TestAnnotations_EntriesAndMax(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	c := b.Constant(i8, ir.NewIntAttr(5))
	z := b.NamedOp("z", ir.NameZero, eint7)
	r := b.NamedOp("r", ir.NameAddEintInt, eint7, x, c)
	s := b.NamedOp("s", ir.NameAddEint, eint7, z, x)
	b.Return(r, s)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)

	entries := ann.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []ir.ValueID{"z", "r", "s"}, []ir.ValueID{entries[0].Value, entries[1].Value, entries[2].Value})
	assert.Equal(t, 2, entries[2].Seq)
	assert.Equal(t, "6", ann.Max().String())
	assert.Equal(t, "main", ann.Function())

	recs := ann.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, ir.AnnotationRecord{Seq: 1, Value: "r", Op: ir.NameAddEintInt, SqNorm: "26", MANP: "6"}, recs[1])
}

func TestAnnotations_MarshalJSON(t *testing.T) {
	b := ir.NewBuilder("main")
	x := b.Arg("x", eint7)
	c := b.Constant(i8, ir.NewIntAttr(5))
	r := b.NamedOp("r", ir.NameAddEintInt, eint7, x, c)
	b.Return(r)

	ann, err := Analyze(b.Function(), Config{})
	require.NoError(t, err)

	data, err := json.Marshal(ann)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"function": "main",
		"max_manp": "6",
		"entries": [{"value": "r", "op": "fhe.add_eint_int", "sq_norm": "26", "manp": "6"}]
	}`, string(data))
}

func TestAnnotations_EmptyFunction(t *testing.T) {
	ann, err := Analyze(&ir.Function{Name: "empty"}, Config{})
	require.NoError(t, err)
	assert.Equal(t, 0, ann.Len())
	assert.Equal(t, "0", ann.Max().String())

	data, err := json.Marshal(ann)
	require.NoError(t, err)
	assert.JSONEq(t, `{"function":"empty","max_manp":"0","entries":[]}`, string(data))
}

func TestAnalyzeModule(t *testing.T) {
	good := ir.NewBuilder("good")
	gx := good.Arg("x", eint7)
	gc := good.Constant(i8, ir.NewIntAttr(5))
	good.NamedOp("r", ir.NameAddEintInt, eint7, gx, gc)

	other := ir.NewBuilder("other")
	other.NamedOp("z", ir.NameZero, eint7)

	bad := ir.NewBuilder("bad")
	bad.NamedOp("n", "fhe.neg_eint", eint7)

	mod := &ir.Module{Functions: []ir.Function{*good.Function(), *other.Function()}}
	results, err := AnalyzeModule(mod, Config{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "good", results[0].Function())
	assert.Equal(t, "other", results[1].Function())
	assert.Equal(t, "6", results[0].Max().String())

	mod.Functions = append(mod.Functions, *bad.Function())
	results, err = AnalyzeModule(mod, Config{})
	require.Error(t, err)
	assert.Nil(t, results)

	var d *Diagnostic
	require.ErrorAs(t, err, &d)
	assert.Equal(t, "bad", d.Function)
}
