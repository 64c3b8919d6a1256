package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/manp/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(id string, seq int64) ir.RunRecord {
	return ir.RunRecord{
		ID:              id,
		Seq:             seq,
		Source:          "testdata/main.cue",
		ModuleHash:      "module-hash",
		AnalysisVersion: ir.AnalysisVersion,
	}
}

// createTestAnnotations returns the annotation map of 26 = 1 + 5².
func createTestAnnotations() []ir.AnnotationRecord {
	return []ir.AnnotationRecord{
		{Seq: 0, Value: "a", Op: "fhe.add_eint_int", SqNorm: "26", MANP: "6"},
		{Seq: 1, Value: "t", Op: "fhe.apply_lookup_table", SqNorm: "1", MANP: "1"},
	}
}
