// Package ir provides the program graph consumed by the noise analysis.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the graph the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Functions are in single-assignment form: every ValueID is defined once
//   - Body order is program order and respects define-before-use
//   - Literal payloads are arbitrary precision (*big.Int), never floats
//   - All JSON tags use snake_case
package ir
