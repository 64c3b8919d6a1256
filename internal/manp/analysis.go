package manp

import (
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/manp/internal/apint"
	"github.com/roach88/manp/internal/ir"
)

// Config controls one analysis run.
type Config struct {
	// EmitTrace keeps one TraceRecord per analyzed operation on the result
	// and logs it at debug level.
	EmitTrace bool

	// MaxBits bounds the bit width of every squared norm. Bounds derived
	// from a type width are checked before they are built. Zero means only
	// the apint.MaxWidth budget applies.
	MaxBits uint

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// analyzer holds the state of one run over one function.
type analyzer struct {
	fn     *ir.Function
	cfg    Config
	log    *slog.Logger
	defs   map[ir.ValueID]ir.Def
	norms  map[ir.ValueID]apint.APInt // write-once
	result *Annotations
	cur    *ir.Operation // operation being bounded
}

// Analyze computes the squared norm bound and MANP of every result of an fhe
// operation in fn.
//
// The body is visited once in program order:
//  1. Encrypted block arguments are seeded with bound 1
//  2. arith.constant and operations outside the fhe dialect are inert
//  3. Each fhe operation is bounded by its rule from the bounds already recorded
//  4. An fhe operation without a rule aborts the run
//
// On failure the returned error is a *Diagnostic and no annotations are
// returned. Analyze does not modify fn.
func Analyze(fn *ir.Function, cfg Config) (ann *Annotations, err error) {
	a := &analyzer{
		fn:     fn,
		cfg:    cfg,
		log:    cfg.logger().With("function", fn.Name),
		defs:   fn.Defs(),
		norms:  make(map[ir.ValueID]apint.APInt),
		result: newAnnotations(fn.Name),
	}

	defer func() {
		// apint panics only when a width leaves its host budget
		if r := recover(); r != nil {
			werr, ok := r.(*apint.WidthError)
			if !ok {
				panic(r)
			}
			ann = nil
			err = newDiagnostic(ErrCodeWidthOverflow, fn, a.cur, "%s", werr.Error())
		}
	}()

	if err := a.run(); err != nil {
		var d *Diagnostic
		if errors.As(err, &d) {
			a.log.Debug("analysis aborted", "code", d.Code, "op", d.Op, "value", d.Value, "reason", d.Message)
		}
		return nil, err
	}

	a.log.Debug("analysis complete", "entries", a.result.Len(), "max_manp", a.result.Max().String())
	return a.result, nil
}

func (a *analyzer) run() error {
	a.log.Debug("analyzing function", "args", len(a.fn.Args), "ops", len(a.fn.Body))

	for i := range a.fn.Args {
		arg := &a.fn.Args[i]
		if !arg.Type.IsEncrypted() {
			continue
		}
		if _, dup := a.norms[arg.ID]; dup {
			return NewMalformedError(a.fn, nil, "block argument %q defined twice", arg.ID)
		}
		a.norms[arg.ID] = apint.One()
	}

	for i := range a.fn.Body {
		op := &a.fn.Body[i]

		r, tracked, err := a.selectRule(op)
		if err != nil {
			return err
		}
		if !tracked {
			continue
		}

		if !op.HasResult() {
			return NewMalformedError(a.fn, op, "%s has no result", op.Name)
		}
		if _, dup := a.norms[op.ID]; dup {
			return NewMalformedError(a.fn, op, "value %q defined twice", op.ID)
		}

		a.cur = op
		sq, err := r(a, op)
		if err != nil {
			return err
		}
		if limit := uint64(a.cfg.MaxBits); limit > 0 && sq.Width() > limit {
			return NewWidthOverflowError(a.fn, op, sq.Width(), limit)
		}

		a.norms[op.ID] = sq
		entry := a.result.add(op, sq)
		if a.cfg.EmitTrace {
			a.trace(entry)
		}
	}
	return nil
}

// selectRule returns the rule for op, or tracked=false for inert operations.
// An fhe operation without a rule is an error: skipping it would under-report
// the noise of everything that consumes it.
func (a *analyzer) selectRule(op *ir.Operation) (rule, bool, error) {
	kind := op.Kind()
	switch {
	case kind == ir.OpConstant:
		return nil, false, nil
	case kind == ir.OpUnknown && !ir.IsFHE(op.Name):
		return nil, false, nil
	}

	r, ok := rules[kind]
	if !ok {
		return nil, false, NewUnsupportedError(a.fn, op, "no noise rule for operator "+op.Name)
	}
	return r, true, nil
}

func (a *analyzer) trace(e Entry) {
	rec := TraceRecord{
		Value:  e.Value,
		Op:     e.Op,
		Loc:    e.Loc,
		SqNorm: e.SqNorm,
		MANP:   e.MANP,
	}
	a.result.trace = append(a.result.trace, rec)
	a.log.Debug("squared Minimal Arithmetic Noise Padding",
		"value", rec.Value,
		"op", rec.Op,
		"loc", rec.Loc.String(),
		"sq_norm", rec.SqNorm.String(),
		"manp", rec.MANP.String(),
	)
}

// AnalyzeModule analyzes every function of m independently, in declaration
// order. It stops at the first function that fails and returns its
// diagnostic.
func AnalyzeModule(m *ir.Module, cfg Config) ([]*Annotations, error) {
	out := make([]*Annotations, 0, len(m.Functions))
	for i := range m.Functions {
		ann, err := Analyze(&m.Functions[i], cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, ann)
	}
	return out, nil
}
