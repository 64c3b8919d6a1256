package ir

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainFunction = "manp/function/v1"
	DomainModule   = "manp/module/v1"
)

// hashWithDomain computes a SHA3-256 hash with domain separation.
// Format: SHA3-256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha3.New256()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FunctionHash computes the content hash of a function graph.
// Two functions with the same arguments and body hash equally regardless of
// source locations, so a stored analysis can be matched to its input.
func FunctionHash(f *Function) (string, error) {
	canonical, err := MarshalCanonical(f)
	if err != nil {
		return "", fmt.Errorf("FunctionHash %q: failed to marshal: %w", f.Name, err)
	}
	return hashWithDomain(DomainFunction, canonical), nil
}

// ModuleHash computes the content hash of a module from its function hashes
// in declaration order.
func ModuleHash(m *Module) (string, error) {
	hashes := make([]any, len(m.Functions))
	for i := range m.Functions {
		h, err := FunctionHash(&m.Functions[i])
		if err != nil {
			return "", err
		}
		hashes[i] = h
	}
	canonical, err := MarshalCanonical(hashes)
	if err != nil {
		return "", fmt.Errorf("ModuleHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModule, canonical), nil
}

// MustFunctionHash is like FunctionHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFunctionHash(f *Function) string {
	h, err := FunctionHash(f)
	if err != nil {
		panic(err)
	}
	return h
}
