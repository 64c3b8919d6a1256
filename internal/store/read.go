package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/manp/internal/ir"
)

// ErrRunNotFound is returned when a run ID has no record.
var ErrRunNotFound = errors.New("run not found")

// LastSeq returns the seq of the newest run, 0 for an empty store.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// ReadRuns returns every run ordered by seq.
//
// Returns an empty slice (not nil) for an empty store.
func (s *Store) ReadRuns(ctx context.Context) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, source, module_hash, analysis_version
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a single run by ID.
// Returns ErrRunNotFound if no such run exists.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, source, module_hash, analysis_version
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// LatestRun returns the run with the highest seq.
// Returns ErrRunNotFound for an empty store.
func (s *Store) LatestRun(ctx context.Context) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, source, module_hash, analysis_version
		FROM runs
		ORDER BY seq DESC
		LIMIT 1
	`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RunRecord{}, ErrRunNotFound
	}
	return run, err
}

// ReadFunctions returns the function summaries of a run in insertion order.
func (s *Store) ReadFunctions(ctx context.Context, runID string) ([]ir.FunctionRecord, error) {
	return s.queryFunctions(ctx, `
		SELECT id, run_id, name, graph_hash, max_manp
		FROM functions
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
}

// FindByGraphHash returns every stored analysis of a function whose graph
// hashes to hash, oldest run first.
func (s *Store) FindByGraphHash(ctx context.Context, hash string) ([]ir.FunctionRecord, error) {
	return s.queryFunctions(ctx, `
		SELECT f.id, f.run_id, f.name, f.graph_hash, f.max_manp
		FROM functions f
		JOIN runs r ON f.run_id = r.id
		WHERE f.graph_hash = ?
		ORDER BY r.seq ASC, f.id ASC
	`, hash)
}

func (s *Store) queryFunctions(ctx context.Context, query string, arg any) ([]ir.FunctionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query functions: %w", err)
	}
	defer rows.Close()

	fns := []ir.FunctionRecord{}
	for rows.Next() {
		var fn ir.FunctionRecord
		if err := rows.Scan(&fn.ID, &fn.RunID, &fn.Name, &fn.GraphHash, &fn.MaxMANP); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		fns = append(fns, fn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate functions: %w", err)
	}
	return fns, nil
}

// ReadAnnotations returns the annotation map of a function row in program
// order.
func (s *Store) ReadAnnotations(ctx context.Context, functionID int64) ([]ir.AnnotationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, value_id, op, sq_norm, manp
		FROM annotations
		WHERE function_id = ?
		ORDER BY seq ASC
	`, functionID)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	anns := []ir.AnnotationRecord{}
	for rows.Next() {
		var a ir.AnnotationRecord
		var value string
		if err := rows.Scan(&a.Seq, &value, &a.Op, &a.SqNorm, &a.MANP); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		a.Value = ir.ValueID(value)
		anns = append(anns, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	return anns, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ir.RunRecord, error) {
	var run ir.RunRecord
	err := row.Scan(&run.ID, &run.Seq, &run.Source, &run.ModuleHash, &run.AnalysisVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.RunRecord{}, err
		}
		return ir.RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}
