package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an expectation fails.
// It includes the full annotation list to help debug the failure.
type AssertionError struct {
	Type     string        // Expectation kind for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Entries  []EntryResult // All annotations for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Entries) > 0 {
		fmt.Fprintf(&buf, "\nAnnotations:\n")
		for i, entry := range e.Entries {
			fmt.Fprintf(&buf, "  [%d] %s = %s  sq_norm=%s manp=%s\n", i+1, entry.Value, entry.Op, entry.SqNorm, entry.MANP)
		}
	}

	return buf.String()
}

// EvaluateExpectations checks a result against the scenario and returns
// one message per failed expectation.
func EvaluateExpectations(result *Result, scenario *Scenario) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if scenario.ExpectError != nil {
		add(assertDiagnostic(result, *scenario.ExpectError))
		return errs
	}

	if result.Diagnostic != nil {
		return []string{(&AssertionError{
			Type:     "analysis",
			Expected: "success",
			Actual:   fmt.Sprintf("%s: %s", result.Diagnostic.Code, result.Diagnostic.Message),
		}).Error()}
	}

	for _, exp := range scenario.Expect {
		add(assertEntry(result, exp))
	}
	if scenario.ExpectMaxMANP != "" && result.MaxMANP != scenario.ExpectMaxMANP {
		add(&AssertionError{
			Type:     "max_manp",
			Expected: scenario.ExpectMaxMANP,
			Actual:   result.MaxMANP,
			Entries:  result.Entries,
		})
	}
	return errs
}

// assertEntry checks the annotation of a single value.
// Fields left empty in the expectation are not compared.
func assertEntry(result *Result, exp Expectation) error {
	got, ok := result.Entry(exp.Value)
	if !ok {
		return &AssertionError{
			Type:     "annotation",
			Expected: fmt.Sprintf("value %s annotated", exp.Value),
			Actual:   "no annotation",
			Entries:  result.Entries,
		}
	}

	var mismatches []string
	if exp.SqNorm != "" && exp.SqNorm != got.SqNorm {
		mismatches = append(mismatches, fmt.Sprintf("sq_norm %s, want %s", got.SqNorm, exp.SqNorm))
	}
	if exp.MANP != "" && exp.MANP != got.MANP {
		mismatches = append(mismatches, fmt.Sprintf("manp %s, want %s", got.MANP, exp.MANP))
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     "annotation",
		Expected: fmt.Sprintf("value %s with sq_norm=%s manp=%s", exp.Value, orAny(exp.SqNorm), orAny(exp.MANP)),
		Actual:   strings.Join(mismatches, ", "),
		Entries:  result.Entries,
	}
}

// assertDiagnostic checks that the analysis failed as expected.
func assertDiagnostic(result *Result, exp ExpectedError) error {
	if result.Diagnostic == nil {
		return &AssertionError{
			Type:     "expect_error",
			Expected: fmt.Sprintf("diagnostic %s", exp.Code),
			Actual:   "analysis succeeded",
			Entries:  result.Entries,
		}
	}

	d := result.Diagnostic
	switch {
	case d.Code != exp.Code,
		exp.Value != "" && d.Value != exp.Value,
		exp.Op != "" && d.Op != exp.Op:
		return &AssertionError{
			Type:     "expect_error",
			Expected: fmt.Sprintf("%s at value=%s op=%s", exp.Code, orAny(exp.Value), orAny(exp.Op)),
			Actual:   fmt.Sprintf("%s at value=%s op=%s: %s", d.Code, d.Value, d.Op, d.Message),
		}
	}

	// A failed analysis must not leave partial annotations behind
	if len(result.Entries) > 0 {
		return &AssertionError{
			Type:     "expect_error",
			Expected: "no annotations",
			Actual:   fmt.Sprintf("%d annotations", len(result.Entries)),
			Entries:  result.Entries,
		}
	}
	return nil
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
