package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// DotProgram is the dot product of an encrypted vector with constant
// weights [1, 2, 3, 4]. Its result has squared norm 30 and MANP 6.
const DotProgram = `functions: main: {
	args: [{name: "x", type: "tensor<4xeint<6>>"}]
	body: [
		{id: "w", op: "arith.constant", type: "tensor<4xi7>", value: [1, 2, 3, 4]},
		{id: "r", op: "fhe.dot_eint_int", type: "eint<6>", operands: ["x", "w"]},
	]
}
`

// ChainProgram adds a constant to an encrypted input, multiplies by a
// constant, and refreshes the result through a lookup table.
//
//	a = x + 3        sq 10  MANP 4
//	m = a * 2        sq 40  MANP 7
//	t = lut(m)       sq 1   MANP 1
const ChainProgram = `functions: chain: {
	args: [{name: "x", type: "eint<4>"}]
	body: [
		{id: "c3", op: "arith.constant", type: "i5", value: 3},
		{id: "a", op: "fhe.add_eint_int", type: "eint<4>", operands: ["x", "c3"]},
		{id: "c2", op: "arith.constant", type: "i5", value: 2},
		{id: "m", op: "fhe.mul_eint_int", type: "eint<4>", operands: ["a", "c2"]},
		{id: "lut", op: "arith.constant", type: "tensor<16xi64>", value: [0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15]},
		{id: "t", op: "fhe.apply_lookup_table", type: "eint<4>", operands: ["m", "lut"]},
	]
}
`

// UnsupportedProgram uses an fhe operator the analysis has no rule for.
const UnsupportedProgram = `functions: bad: {
	args: [{name: "x", type: "eint<4>"}]
	body: [
		{id: "n", op: "fhe.neg_eint", type: "eint<4>", operands: ["x"]},
	]
}
`

// InvalidProgram references an operand that is never defined.
const InvalidProgram = `functions: broken: {
	args: [{name: "x", type: "eint<4>"}]
	body: [
		{id: "r", op: "fhe.add_eint", type: "eint<4>", operands: ["x", "y"]},
	]
}
`

// WriteProgram writes src to dir/name and returns the path.
func WriteProgram(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
