package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/manp/internal/compiler"
	"github.com/roach88/manp/internal/ir"
	"github.com/roach88/manp/internal/manp"
	"github.com/roach88/manp/internal/store"
	"github.com/roach88/manp/internal/testutil"
)

// Harness runs one scenario against a fresh store.
type Harness struct {
	store  *store.Store
	rec    *store.Recorder
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Load and compile the program
//  2. Reject it if structural validation fails
//  3. Analyze the selected function
//  4. Record the run and read the annotations back
//  5. Evaluate the expectations
//
// An error is returned only when the scenario could not be executed. A
// mismatch with the expectations is reported through Result.Pass.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with analysis debug output sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	mod, err := loadProgram(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}

	if verrs := compiler.Validate(mod); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, e := range verrs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid program: %s", strings.Join(msgs, "; "))
	}

	fn, err := selectFunction(mod, scenario.Function)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	rec, err := store.NewRecorder(ctx, st, testutil.NewFixedIDGenerator("scenario-"+scenario.Name))
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:  st,
		rec:    rec,
		logger: logger,
	}

	result := NewResult(fn.Name)
	if err := h.analyze(ctx, scenario, mod, fn, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateExpectations(result, scenario) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) analyze(ctx context.Context, scenario *Scenario, mod *ir.Module, fn *ir.Function, result *Result) error {
	ann, err := manp.Analyze(fn, manp.Config{
		EmitTrace: true,
		MaxBits:   scenario.MaxBits,
		Logger:    h.logger,
	})
	if err != nil {
		var d *manp.Diagnostic
		if !errors.As(err, &d) {
			return fmt.Errorf("analysis failed: %w", err)
		}
		result.Diagnostic = &DiagnosticResult{
			Code:    string(d.Code),
			Value:   string(d.Value),
			Op:      d.Op,
			Message: d.Message,
		}
		h.logger.Info("analysis aborted", "scenario", scenario.Name, "code", d.Code)
		return nil
	}

	for _, rec := range ann.Trace() {
		result.Trace = append(result.Trace, rec.String())
	}
	result.MaxMANP = ann.Max().String()

	stored, err := h.persist(ctx, scenario, mod, fn, ann)
	if err != nil {
		return err
	}
	for _, a := range stored {
		result.Entries = append(result.Entries, EntryResult{
			Value:  string(a.Value),
			Op:     a.Op,
			SqNorm: a.SqNorm,
			MANP:   a.MANP,
		})
	}

	// The store must hand back exactly what was computed
	computed := ann.Records()
	if len(computed) != len(stored) {
		result.AddError(fmt.Sprintf("store round trip: %d annotations computed, %d stored", len(computed), len(stored)))
	} else {
		for i := range computed {
			if computed[i] != stored[i] {
				result.AddError(fmt.Sprintf("store round trip: entry %d is %+v, stored %+v", i, computed[i], stored[i]))
			}
		}
	}

	h.logger.Info("scenario analyzed",
		"scenario", scenario.Name,
		"function", fn.Name,
		"entries", ann.Len(),
		"max_manp", result.MaxMANP,
	)
	return nil
}

// persist records the run and reads the annotations back.
func (h *Harness) persist(ctx context.Context, scenario *Scenario, mod *ir.Module, fn *ir.Function, ann *manp.Annotations) ([]ir.AnnotationRecord, error) {
	moduleHash, err := ir.ModuleHash(mod)
	if err != nil {
		return nil, fmt.Errorf("hash module: %w", err)
	}
	graphHash, err := ir.FunctionHash(fn)
	if err != nil {
		return nil, fmt.Errorf("hash function: %w", err)
	}

	run, err := h.rec.Record(ctx, programName(scenario), moduleHash, []store.FunctionResult{{
		Name:        fn.Name,
		GraphHash:   graphHash,
		MaxMANP:     ann.Max().String(),
		Annotations: ann.Records(),
	}})
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	fns, err := h.store.ReadFunctions(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if len(fns) != 1 {
		return nil, fmt.Errorf("record run: %d functions stored, want 1", len(fns))
	}
	return h.store.ReadAnnotations(ctx, fns[0].ID)
}

func loadProgram(s *Scenario) (*ir.Module, error) {
	if s.Source != "" {
		return compiler.LoadSource(s.Name+".cue", []byte(s.Source))
	}
	info, err := os.Stat(s.Program)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return compiler.LoadDir(s.Program)
	}
	return compiler.LoadFile(s.Program)
}

func selectFunction(mod *ir.Module, name string) (*ir.Function, error) {
	if name != "" {
		fn := mod.Function(name)
		if fn == nil {
			return nil, fmt.Errorf("function %q not found in program", name)
		}
		return fn, nil
	}
	if len(mod.Functions) != 1 {
		return nil, fmt.Errorf("program has %d functions; set function", len(mod.Functions))
	}
	return &mod.Functions[0], nil
}

func programName(s *Scenario) string {
	if s.Program != "" {
		return s.Program
	}
	return "inline:" + s.Name
}
