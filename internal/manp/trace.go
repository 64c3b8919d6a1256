package manp

import (
	"fmt"
	"io"

	"github.com/roach88/manp/internal/apint"
	"github.com/roach88/manp/internal/ir"
)

// TraceRecord is one line of the diagnostic trace.
type TraceRecord struct {
	Value  ir.ValueID
	Op     string
	Loc    ir.Location
	SqNorm apint.APInt
	MANP   apint.APInt
}

// String renders r as a compiler remark.
func (r TraceRecord) String() string {
	return fmt.Sprintf("%s: remark: squared Minimal Arithmetic Noise Padding: %s (MANP %s)",
		r.Loc, r.SqNorm, r.MANP)
}

// Trace returns the trace records in program order. It is empty unless
// the run had Config.EmitTrace set.
func (a *Annotations) Trace() []TraceRecord {
	out := make([]TraceRecord, len(a.trace))
	copy(out, a.trace)
	return out
}

// WriteTrace writes one remark line per trace record.
func (a *Annotations) WriteTrace(w io.Writer) error {
	for _, r := range a.trace {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}
