package ir

import (
	"encoding/json"
	"math/big"
	"strings"
)

// Attr is a sealed interface for compile-time literal payloads.
// Only IntAttr and DenseIntAttr implement this.
// NO float payloads - literal values must be exact.
type Attr interface {
	attr() // Sealed - only these types implement it

	// Len is the number of integers in the payload.
	Len() int
}

// IntAttr is a scalar integer literal.
type IntAttr struct {
	V *big.Int
}

func (IntAttr) attr() {}

// Len returns 1.
func (IntAttr) Len() int { return 1 }

// DenseIntAttr is a dense list of integer literals, row-major for tensors.
type DenseIntAttr struct {
	Values []*big.Int
}

func (DenseIntAttr) attr() {}

// Len returns the number of elements.
func (a DenseIntAttr) Len() int { return len(a.Values) }

// NewIntAttr creates an IntAttr from an int64.
func NewIntAttr(v int64) IntAttr {
	return IntAttr{V: big.NewInt(v)}
}

// NewDenseIntAttr creates a DenseIntAttr from int64 values.
func NewDenseIntAttr(vals ...int64) DenseIntAttr {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return DenseIntAttr{Values: out}
}

// Ints returns the integers of a payload as a slice.
// A scalar payload yields a single element.
func Ints(a Attr) []*big.Int {
	switch v := a.(type) {
	case IntAttr:
		return []*big.Int{v.V}
	case DenseIntAttr:
		return v.Values
	default:
		return nil
	}
}

// FitsWidth reports whether every integer of a fits in a signless integer of
// the given bit width, read either as signed or as unsigned.
func FitsWidth(a Attr, width int) bool {
	if width <= 0 {
		return false
	}
	umax := new(big.Int).Lsh(big.NewInt(1), uint(width))
	smin := new(big.Int).Neg(new(big.Int).Rsh(umax, 1))
	for _, v := range Ints(a) {
		if v == nil || v.Cmp(smin) < 0 || v.Cmp(umax) >= 0 {
			return false
		}
	}
	return true
}

// String renders a payload as a decimal literal or a bracketed list.
func (a IntAttr) String() string {
	if a.V == nil {
		return "<nil>"
	}
	return a.V.String()
}

func (a DenseIntAttr) String() string {
	parts := make([]string, len(a.Values))
	for i, v := range a.Values {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalJSON encodes the literal as a decimal string so that values wider
// than 64 bits survive JSON round trips.
func (a IntAttr) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// MarshalJSON encodes each element as a decimal string.
func (a DenseIntAttr) MarshalJSON() ([]byte, error) {
	out := make([]string, len(a.Values))
	for i, v := range a.Values {
		out[i] = v.String()
	}
	return json.Marshal(out)
}
