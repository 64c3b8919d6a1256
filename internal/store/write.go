package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/manp/internal/ir"
)

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING, so rewriting a run is a no-op.
func (s *Store) WriteRun(ctx context.Context, run ir.RunRecord) error {
	return writeRun(ctx, s.db, run)
}

// WriteRunWithFunctions writes a run together with all of its functions and
// their annotations in one transaction. Either the whole run is stored or
// nothing is.
func (s *Store) WriteRunWithFunctions(ctx context.Context, run ir.RunRecord, fns []FunctionResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := writeRun(ctx, tx, run); err != nil {
		return err
	}

	for _, fn := range fns {
		rec := ir.FunctionRecord{
			RunID:     run.ID,
			Name:      fn.Name,
			GraphHash: fn.GraphHash,
			MaxMANP:   fn.MaxMANP,
		}
		id, inserted, err := writeFunctionTx(ctx, tx, rec)
		if err != nil {
			return fmt.Errorf("record %s: %w", fn.Name, err)
		}
		if inserted {
			if err := writeAnnotationsTx(ctx, tx, id, fn.Annotations); err != nil {
				return fmt.Errorf("record %s: %w", fn.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeRun(ctx context.Context, ex execer, run ir.RunRecord) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, source, module_hash, analysis_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Seq,
		run.Source,
		run.ModuleHash,
		run.AnalysisVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteFunction atomically writes a function summary and its annotations.
//
// Returns:
//   - id: the ID of the function row (new or existing)
//   - inserted: true if this was a new row, false if (run_id, name) already existed
//   - error: any error that occurred
//
// Annotations of an existing row are left untouched.
func (s *Store) WriteFunction(ctx context.Context, fn ir.FunctionRecord, anns []ir.AnnotationRecord) (id int64, inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write function: begin tx: %w", err)
	}
	defer tx.Rollback()

	id, inserted, err = writeFunctionTx(ctx, tx, fn)
	if err != nil {
		return 0, false, err
	}

	if inserted {
		if err := writeAnnotationsTx(ctx, tx, id, anns); err != nil {
			return 0, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write function: commit: %w", err)
	}
	return id, inserted, nil
}

func writeFunctionTx(ctx context.Context, tx *sql.Tx, fn ir.FunctionRecord) (int64, bool, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO functions
		(run_id, name, graph_hash, max_manp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, name) DO NOTHING
	`,
		fn.RunID,
		fn.Name,
		fn.GraphHash,
		fn.MaxMANP,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write function: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write function: rows affected: %w", err)
	}

	var id int64
	if rowsAffected > 0 {
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("write function: last insert id: %w", err)
		}
		return id, true, nil
	}

	// Conflict: fetch the existing row
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM functions
		WHERE run_id = ? AND name = ?
	`, fn.RunID, fn.Name).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("write function: select existing: %w", err)
	}
	return id, false, nil
}

func writeAnnotationsTx(ctx context.Context, tx *sql.Tx, functionID int64, anns []ir.AnnotationRecord) error {
	if len(anns) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO annotations
		(function_id, seq, value_id, op, sq_norm, manp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(function_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write annotations: prepare: %w", err)
	}
	defer stmt.Close()

	for _, a := range anns {
		if _, err := stmt.ExecContext(ctx, functionID, a.Seq, string(a.Value), a.Op, a.SqNorm, a.MANP); err != nil {
			return fmt.Errorf("write annotations: %s: %w", a.Value, err)
		}
	}
	return nil
}
