package store

import (
	"context"
	"fmt"

	"github.com/roach88/manp/internal/ir"
)

// FunctionResult is the outcome of analyzing one function, ready to be
// persisted.
type FunctionResult struct {
	Name        string
	GraphHash   string
	MaxMANP     string
	Annotations []ir.AnnotationRecord
}

// Recorder stamps and persists analysis runs.
//
// Each recorded run gets an ID from its IDGenerator and the next seq of a
// clock resumed from the newest stored run.
type Recorder struct {
	store *Store
	ids   IDGenerator
	clock *Clock
}

// NewRecorder creates a recorder that continues after the last stored run.
func NewRecorder(ctx context.Context, s *Store, ids IDGenerator) (*Recorder, error) {
	last, err := s.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("new recorder: %w", err)
	}
	return &Recorder{
		store: s,
		ids:   ids,
		clock: NewClockAt(last),
	}, nil
}

// Record writes one run and all of its functions atomically. A seq taken by
// a failed write is not reused.
func (r *Recorder) Record(ctx context.Context, source, moduleHash string, fns []FunctionResult) (ir.RunRecord, error) {
	run := ir.RunRecord{
		ID:              r.ids.Generate(),
		Seq:             r.clock.Next(),
		Source:          source,
		ModuleHash:      moduleHash,
		AnalysisVersion: ir.AnalysisVersion,
	}
	if err := r.store.WriteRunWithFunctions(ctx, run, fns); err != nil {
		return ir.RunRecord{}, err
	}
	return run, nil
}
