// Package apint provides width-tracked arbitrary precision unsigned integers.
//
// Every operation widens its result so that the exact value always fits:
//   - Add:    max(wa, wb) + 1 bits
//   - Mul:    wa + wb bits
//   - Square: 2·wa bits
//
// Values are immutable. No operation truncates or wraps; a result whose width
// would exceed MaxWidth panics with *WidthError, since such a width can only
// come from a malformed caller.
package apint

import (
	"fmt"
	"math"
	"math/big"
	"math/bits"
)

// MaxWidth is the largest bit width a value may carry.
const MaxWidth = math.MaxUint32

// WidthError reports an operation whose result width exceeds MaxWidth.
type WidthError struct {
	Op    string
	Width uint64
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("apint: %s needs %d bits, more than %d", e.Op, e.Width, uint64(MaxWidth))
}

// APInt is an unsigned integer with an explicit bit width.
// The zero APInt is the value 0 with width 1.
type APInt struct {
	v     *big.Int
	width uint64
}

// New returns v as an APInt of the given width.
// The width is raised to the bit length of v if it is too small.
func New(v uint64, width uint) APInt {
	return FromBig(new(big.Int).SetUint64(v), width)
}

// FromBig returns the magnitude of v as an APInt of the given width.
// The width is raised to the bit length of |v| if it is too small.
func FromBig(v *big.Int, width uint) APInt {
	abs := new(big.Int).Abs(v)
	w := uint64(width)
	if bl := uint64(abs.BitLen()); bl > w {
		w = bl
	}
	return APInt{v: abs, width: normWidth(w)}
}

// One returns the value 1 with width 1.
func One() APInt {
	return New(1, 1)
}

// MaxValue returns the all-ones value of bitWidth bits.
// The width is checked before the value is allocated.
func MaxValue(bitWidth uint) APInt {
	checkWidth("max", uint64(bitWidth))
	v := new(big.Int).Lsh(big.NewInt(1), bitWidth)
	v.Sub(v, big.NewInt(1))
	return APInt{v: v, width: normWidth(uint64(bitWidth))}
}

// WidthForCount returns the number of bits needed to hold n, ceil(log2(n+1)).
func WidthForCount(n uint64) uint {
	return uint(bits.Len64(n))
}

// ForCount returns n as an APInt of WidthForCount(n) bits.
func ForCount(n uint64) APInt {
	return New(n, WidthForCount(n))
}

// Width returns the bit width of a.
func (a APInt) Width() uint64 {
	if a.v == nil {
		return 1
	}
	return a.width
}

// Big returns a copy of the value of a.
func (a APInt) Big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.v)
}

// IsZero reports whether a is 0.
func (a APInt) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}

// String returns the unsigned decimal representation of a.
func (a APInt) String() string {
	if a.v == nil {
		return "0"
	}
	return a.v.String()
}

// Cmp compares the values of a and b regardless of their widths.
// It returns -1, 0 or +1.
func (a APInt) Cmp(b APInt) int {
	return a.val().Cmp(b.val())
}

// Less reports whether a < b, extending the narrower operand.
func (a APInt) Less(b APInt) bool {
	return a.Cmp(b) < 0
}

// Equal reports whether a and b hold the same value. Widths are ignored.
func (a APInt) Equal(b APInt) bool {
	return a.Cmp(b) == 0
}

// Add returns a + b with width max(wa, wb) + 1.
func Add(a, b APInt) APInt {
	w := max(a.Width(), b.Width()) + 1
	checkWidth("add", w)
	return APInt{v: new(big.Int).Add(a.val(), b.val()), width: w}
}

// Mul returns a × b with width wa + wb.
func Mul(a, b APInt) APInt {
	w := a.Width() + b.Width()
	checkWidth("mul", w)
	return APInt{v: new(big.Int).Mul(a.val(), b.val()), width: w}
}

// Square returns a² with width 2·wa.
func Square(a APInt) APInt {
	w := 2 * a.Width()
	checkWidth("square", w)
	return APInt{v: new(big.Int).Mul(a.val(), a.val()), width: w}
}

// Sqrt returns floor(√a) with the width of a.
func Sqrt(a APInt) APInt {
	return APInt{v: new(big.Int).Sqrt(a.val()), width: a.Width()}
}

// CeilSqrt returns the smallest r such that r² ≥ a.
func CeilSqrt(a APInt) APInt {
	r := new(big.Int).Sqrt(a.val())
	if new(big.Int).Mul(r, r).Cmp(a.val()) < 0 {
		r.Add(r, big.NewInt(1))
	}
	// ⌈√a⌉ never needs more bits than a
	return APInt{v: r, width: a.Width()}
}

// Sum adds all values, starting from 0 of width 1.
func Sum(vals ...APInt) APInt {
	acc := New(0, 1)
	for _, v := range vals {
		acc = Add(acc, v)
	}
	return acc
}

func (a APInt) val() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

func checkWidth(op string, w uint64) {
	if w > MaxWidth {
		panic(&WidthError{Op: op, Width: w})
	}
}

func normWidth(w uint64) uint64 {
	if w == 0 {
		return 1
	}
	checkWidth("construct", w)
	return w
}
