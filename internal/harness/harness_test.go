package harness

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manp/internal/testutil"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"add_constant", "chain", "dot_dynamic", "unsupported", "width_limit"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_EntriesInProgramOrder(t *testing.T) {
	result, err := Run(loadTestScenario(t, "chain"))
	require.NoError(t, err)

	require.Len(t, result.Entries, 3)
	assert.Equal(t, "a", result.Entries[0].Value)
	assert.Equal(t, "m", result.Entries[1].Value)
	assert.Equal(t, "t", result.Entries[2].Value)
	assert.Equal(t, "7", result.MaxMANP)
	assert.Nil(t, result.Diagnostic)

	require.Len(t, result.Trace, 3)
	assert.Contains(t, result.Trace[1], "remark: squared Minimal Arithmetic Noise Padding: 40 (MANP 7)")
}

func TestRun_FailedAnalysisHasNoEntries(t *testing.T) {
	result, err := Run(loadTestScenario(t, "unsupported"))
	require.NoError(t, err)

	require.NotNil(t, result.Diagnostic)
	assert.Equal(t, "UNSUPPORTED_OPERATION", result.Diagnostic.Code)
	assert.Equal(t, "n", result.Diagnostic.Value)
	assert.Empty(t, result.Entries)
	assert.Empty(t, result.MaxMANP)
}

func TestRun_WrongExpectationFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong",
		Description: "d",
		Source:      testutil.DotProgram,
		Expect:      []Expectation{{Value: "r", SqNorm: "31", MANP: "6"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "sq_norm 30, want 31")
}

func TestRun_ExpectedErrorButSucceeded(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_error",
		Description: "d",
		Source:      testutil.DotProgram,
		ExpectError: &ExpectedError{Code: "UNSUPPORTED_OPERATION"},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "analysis succeeded")
}

func TestRun_UnexpectedDiagnostic(t *testing.T) {
	scenario := &Scenario{
		Name:          "surprise",
		Description:   "d",
		Source:        testutil.UnsupportedProgram,
		ExpectMaxMANP: "1",
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "UNSUPPORTED_OPERATION")
}

func TestRun_InvalidProgram(t *testing.T) {
	scenario := &Scenario{
		Name:          "invalid",
		Description:   "d",
		Source:        testutil.InvalidProgram,
		ExpectMaxMANP: "1",
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid program")
	assert.Contains(t, err.Error(), "E103")
}

func TestRun_FunctionSelection(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteProgram(t, dir, "dot.cue", testutil.DotProgram)
	testutil.WriteProgram(t, dir, "chain.cue", testutil.ChainProgram)

	ambiguous := &Scenario{Name: "a", Description: "d", Program: dir, ExpectMaxMANP: "6"}
	_, err := Run(ambiguous)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program has 2 functions")

	missing := &Scenario{Name: "m", Description: "d", Program: dir, Function: "nope", ExpectMaxMANP: "6"}
	_, err = Run(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `function "nope" not found`)

	chosen := &Scenario{Name: "c", Description: "d", Program: dir, Function: "main", ExpectMaxMANP: "6"}
	result, err := Run(chosen)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithLogger_LogsAnalysis(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := RunWithLogger(loadTestScenario(t, "add_constant"), logger)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "scenario analyzed")
	assert.Contains(t, out, "squared Minimal Arithmetic Noise Padding")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := loadTestScenario(t, "chain")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
