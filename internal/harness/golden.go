package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/manp/internal/ir"
)

// Snapshot renders the outcome of a scenario as canonical JSON.
//
// Locations and run IDs are left out, so a snapshot depends only on the
// program and the analysis.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	entries := make([]any, len(result.Entries))
	for i, e := range result.Entries {
		entries[i] = map[string]any{
			"value":   e.Value,
			"op":      e.Op,
			"sq_norm": e.SqNorm,
			"manp":    e.MANP,
		}
	}

	snapshot := map[string]any{
		"scenario_name": scenarioName,
		"function":      result.Function,
		"entries":       entries,
	}
	if result.Diagnostic != nil {
		diag := map[string]any{"code": result.Diagnostic.Code}
		if result.Diagnostic.Value != "" {
			diag["value"] = result.Diagnostic.Value
		}
		if result.Diagnostic.Op != "" {
			diag["op"] = result.Diagnostic.Op
		}
		snapshot["error"] = diag
	} else {
		snapshot["max_manp"] = result.MaxMANP
	}

	return ir.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
