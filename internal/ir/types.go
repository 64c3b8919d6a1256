package ir

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxBitWidth is the widest element type a program may declare.
const MaxBitWidth = 1<<24 - 1

// TypeKind is the element category of a Type.
type TypeKind int

const (
	// TypeNone is the result type of operations without a result.
	TypeNone TypeKind = iota
	// TypeInteger is a plaintext signless integer.
	TypeInteger
	// TypeEncrypted is an encrypted integer.
	TypeEncrypted
)

// Type describes a value: a scalar or a statically shaped tensor of
// plaintext or encrypted integers of a given bit width.
type Type struct {
	Kind  TypeKind
	Width int     // element bit width
	Shape []int64 // nil for scalars
}

// EncryptedInt returns the scalar type eint<width>.
func EncryptedInt(width int) Type {
	return Type{Kind: TypeEncrypted, Width: width}
}

// Int returns the scalar type i<width>.
func Int(width int) Type {
	return Type{Kind: TypeInteger, Width: width}
}

// Tensor returns a tensor type with elem's kind and width.
func Tensor(elem Type, shape ...int64) Type {
	return Type{Kind: elem.Kind, Width: elem.Width, Shape: shape}
}

// None is the empty result type.
var None = Type{Kind: TypeNone}

// IsTensor reports whether t is a tensor.
func (t Type) IsTensor() bool {
	return t.Shape != nil
}

// IsEncrypted reports whether t is an encrypted scalar or a tensor of
// encrypted scalars.
func (t Type) IsEncrypted() bool {
	return t.Kind == TypeEncrypted
}

// IsInteger reports whether t is a plaintext integer scalar or tensor.
func (t Type) IsInteger() bool {
	return t.Kind == TypeInteger
}

// NumElements returns the number of tensor elements, or 1 for scalars.
func (t Type) NumElements() int64 {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Rank returns the number of tensor dimensions, 0 for scalars.
func (t Type) Rank() int {
	return len(t.Shape)
}

// Elem returns the scalar element type of t.
func (t Type) Elem() Type {
	return Type{Kind: t.Kind, Width: t.Width}
}

// Equal reports whether t and u describe the same type.
func (t Type) Equal(u Type) bool {
	if t.Kind != u.Kind || t.Width != u.Width || len(t.Shape) != len(u.Shape) {
		return false
	}
	if t.IsTensor() != u.IsTensor() {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != u.Shape[i] {
			return false
		}
	}
	return true
}

// String renders t in the textual type syntax accepted by ParseType.
func (t Type) String() string {
	var elem string
	switch t.Kind {
	case TypeNone:
		return "none"
	case TypeEncrypted:
		elem = fmt.Sprintf("eint<%d>", t.Width)
	case TypeInteger:
		elem = fmt.Sprintf("i%d", t.Width)
	}
	if !t.IsTensor() {
		return elem
	}
	var sb strings.Builder
	sb.WriteString("tensor<")
	for _, d := range t.Shape {
		sb.WriteString(strconv.FormatInt(d, 10))
		sb.WriteByte('x')
	}
	sb.WriteString(elem)
	sb.WriteByte('>')
	return sb.String()
}

var (
	eintPattern   = regexp.MustCompile(`^eint<([0-9]+)>$`)
	intPattern    = regexp.MustCompile(`^i([0-9]+)$`)
	tensorPattern = regexp.MustCompile(`^tensor<((?:[0-9]+x)+)(eint<[0-9]+>|i[0-9]+)>$`)
)

// ParseType parses the textual type syntax:
//
//	none | "" | eint<W> | iW | tensor<D1xD2x...x(eint<W>|iW)>
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return None, nil
	}

	if m := tensorPattern.FindStringSubmatch(s); m != nil {
		elem, err := ParseType(m[2])
		if err != nil {
			return Type{}, err
		}
		dims := strings.Split(strings.TrimSuffix(m[1], "x"), "x")
		shape := make([]int64, len(dims))
		for i, d := range dims {
			n, err := strconv.ParseInt(d, 10, 64)
			if err != nil {
				return Type{}, fmt.Errorf("invalid dimension %q in type %q", d, s)
			}
			shape[i] = n
		}
		return Tensor(elem, shape...), nil
	}

	if m := eintPattern.FindStringSubmatch(s); m != nil {
		w, err := parseWidth(m[1], s)
		if err != nil {
			return Type{}, err
		}
		return EncryptedInt(w), nil
	}

	if m := intPattern.FindStringSubmatch(s); m != nil {
		w, err := parseWidth(m[1], s)
		if err != nil {
			return Type{}, err
		}
		return Int(w), nil
	}

	return Type{}, fmt.Errorf("invalid type %q, expected eint<W>, iW, tensor<...> or none", s)
}

// MustParseType is like ParseType but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

func parseWidth(digits, s string) (int, error) {
	w, err := strconv.Atoi(digits)
	if err != nil || w <= 0 {
		return 0, fmt.Errorf("invalid bit width in type %q", s)
	}
	if w > MaxBitWidth {
		return 0, fmt.Errorf("bit width of type %q exceeds %d", s, MaxBitWidth)
	}
	return w, nil
}

// MarshalJSON encodes t as its textual form.
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes the textual form produced by MarshalJSON.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
