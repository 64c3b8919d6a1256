package ir

import "fmt"

// ValueID names an SSA value: a block argument or an operation result.
type ValueID string

// Location is a source position in the program description.
// The zero Location is "unknown".
type Location struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// IsKnown reports whether l carries a position.
func (l Location) IsKnown() bool {
	return l.File != "" || l.Line > 0
}

func (l Location) String() string {
	switch {
	case !l.IsKnown():
		return "unknown"
	case l.Column > 0:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	default:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
}

// Argument is a block argument of a function.
type Argument struct {
	ID   ValueID  `json:"id"`
	Type Type     `json:"type"`
	Loc  Location `json:"loc"`
}

// Operation is a node of the program graph.
type Operation struct {
	ID       ValueID   `json:"id,omitempty"` // empty when Result is None
	Name     string    `json:"op"`           // dialect-qualified, e.g. "fhe.add_eint"
	Operands []ValueID `json:"operands,omitempty"`
	Result   Type      `json:"type"`
	Value    Attr      `json:"value,omitempty"` // literal payload, nil if none
	Loc      Location  `json:"loc"`
}

// Kind returns the operator kind of op.
func (op *Operation) Kind() OpKind {
	return KindOf(op.Name)
}

// HasResult reports whether op defines a value.
func (op *Operation) HasResult() bool {
	return op.ID != ""
}

// Function is a single-block, single-assignment program graph.
type Function struct {
	Name string      `json:"name"`
	Args []Argument  `json:"args"`
	Body []Operation `json:"body"`
	Loc  Location    `json:"loc"`
}

// Def is the definition site of a value: exactly one of Arg or Op is set.
type Def struct {
	Arg *Argument
	Op  *Operation
}

// Type returns the type of the defined value.
func (d Def) Type() Type {
	if d.Arg != nil {
		return d.Arg.Type
	}
	return d.Op.Result
}

// Defs indexes every argument and operation result of f by ValueID.
// Later duplicates do not replace earlier definitions.
func (f *Function) Defs() map[ValueID]Def {
	defs := make(map[ValueID]Def, len(f.Args)+len(f.Body))
	for i := range f.Args {
		a := &f.Args[i]
		if _, dup := defs[a.ID]; !dup {
			defs[a.ID] = Def{Arg: a}
		}
	}
	for i := range f.Body {
		op := &f.Body[i]
		if !op.HasResult() {
			continue
		}
		if _, dup := defs[op.ID]; !dup {
			defs[op.ID] = Def{Op: op}
		}
	}
	return defs
}

// Module is an ordered collection of functions.
type Module struct {
	Functions []Function `json:"functions"`
}

// Function returns the function with the given name, or nil.
func (m *Module) Function(name string) *Function {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i]
		}
	}
	return nil
}
