// Package manp computes the Minimal Arithmetic Noise Padding of a program
// operating on encrypted integers.
//
// For every result of an fhe operation the analysis derives a conservative
// upper bound on the squared norm of its noise relative to a fresh
// encryption. The reported MANP is the ceiling square root of that bound.
// Downstream parameter selection provisions for the largest MANP of a
// function.
//
// The analysis is a single pass over a single-assignment graph:
//
//	ann, err := manp.Analyze(fn, manp.Config{})
//	if manp.IsUnsupported(err) { ... }
//	m, _ := ann.MANP("r")
//
// Plaintext literals known at compile time contribute their exact square.
// Plaintext values known only by type contribute the square of the largest
// value of their bit width. All arithmetic is exact (see package apint).
//
// Runs share no state, so functions may be analyzed concurrently by the
// caller. AnalyzeModule itself is sequential.
package manp
