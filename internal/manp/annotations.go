package manp

import (
	"encoding/json"

	"github.com/roach88/manp/internal/apint"
	"github.com/roach88/manp/internal/ir"
)

// Entry is the annotation of one operation result.
type Entry struct {
	Seq    int // program order among entries
	Value  ir.ValueID
	Op     string
	Loc    ir.Location
	SqNorm apint.APInt // squared norm bound
	MANP   apint.APInt // ⌈√SqNorm⌉
}

// Annotations maps each analyzed result of one function to its MANP.
// It is read-only once Analyze returns.
type Annotations struct {
	function string
	entries  []Entry
	index    map[ir.ValueID]int
	trace    []TraceRecord
}

func newAnnotations(function string) *Annotations {
	return &Annotations{
		function: function,
		index:    make(map[ir.ValueID]int),
	}
}

func (a *Annotations) add(op *ir.Operation, sq apint.APInt) Entry {
	e := Entry{
		Seq:    len(a.entries),
		Value:  op.ID,
		Op:     op.Name,
		Loc:    op.Loc,
		SqNorm: sq,
		MANP:   apint.CeilSqrt(sq),
	}
	a.index[op.ID] = len(a.entries)
	a.entries = append(a.entries, e)
	return e
}

// Function returns the name of the analyzed function.
func (a *Annotations) Function() string {
	return a.function
}

// MANP returns the MANP of id, or false if id has no entry.
func (a *Annotations) MANP(id ir.ValueID) (apint.APInt, bool) {
	e, ok := a.Entry(id)
	return e.MANP, ok
}

// SquaredNorm returns the squared norm bound of id, or false if id has no entry.
func (a *Annotations) SquaredNorm(id ir.ValueID) (apint.APInt, bool) {
	e, ok := a.Entry(id)
	return e.SqNorm, ok
}

// Entry returns the annotation of id.
func (a *Annotations) Entry(id ir.ValueID) (Entry, bool) {
	i, ok := a.index[id]
	if !ok {
		return Entry{}, false
	}
	return a.entries[i], true
}

// Entries returns all annotations in program order.
func (a *Annotations) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of annotated results.
func (a *Annotations) Len() int {
	return len(a.entries)
}

// Max returns the largest MANP of the function, 0 if nothing was annotated.
// This is the figure parameter selection provisions for.
func (a *Annotations) Max() apint.APInt {
	var m apint.APInt
	for _, e := range a.entries {
		if m.Less(e.MANP) {
			m = e.MANP
		}
	}
	return m
}

// Records converts the annotations to store rows.
func (a *Annotations) Records() []ir.AnnotationRecord {
	out := make([]ir.AnnotationRecord, len(a.entries))
	for i, e := range a.entries {
		out[i] = ir.AnnotationRecord{
			Seq:    int64(e.Seq),
			Value:  e.Value,
			Op:     e.Op,
			SqNorm: e.SqNorm.String(),
			MANP:   e.MANP.String(),
		}
	}
	return out
}

type entryJSON struct {
	Value  ir.ValueID `json:"value"`
	Op     string     `json:"op"`
	Loc    string     `json:"loc,omitempty"`
	SqNorm string     `json:"sq_norm"`
	MANP   string     `json:"manp"`
}

type annotationsJSON struct {
	Function string      `json:"function"`
	MaxMANP  string      `json:"max_manp"`
	Entries  []entryJSON `json:"entries"`
}

// MarshalJSON encodes the annotations with big integers as decimal strings.
func (a *Annotations) MarshalJSON() ([]byte, error) {
	out := annotationsJSON{
		Function: a.function,
		MaxMANP:  a.Max().String(),
		Entries:  make([]entryJSON, len(a.entries)),
	}
	for i, e := range a.entries {
		var loc string
		if e.Loc.IsKnown() {
			loc = e.Loc.String()
		}
		out.Entries[i] = entryJSON{
			Value:  e.Value,
			Op:     e.Op,
			Loc:    loc,
			SqNorm: e.SqNorm.String(),
			MANP:   e.MANP.String(),
		}
	}
	return json.Marshal(out)
}
