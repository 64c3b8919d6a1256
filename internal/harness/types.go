package harness

// EntryResult is one annotation produced by a scenario run.
type EntryResult struct {
	Value  string `json:"value"`
	Op     string `json:"op"`
	SqNorm string `json:"sq_norm"`
	MANP   string `json:"manp"`
}

// DiagnosticResult is the diagnostic a failed analysis returned.
type DiagnosticResult struct {
	Code    string `json:"code"`
	Value   string `json:"value,omitempty"`
	Op      string `json:"op,omitempty"`
	Message string `json:"message"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expectations match.
	Pass bool `json:"pass"`

	// Function is the analyzed function.
	Function string `json:"function"`

	// Entries holds the annotations in program order. Empty when the
	// analysis failed.
	Entries []EntryResult `json:"entries"`

	// MaxMANP is the largest MANP of the function, empty when the analysis
	// failed.
	MaxMANP string `json:"max_manp,omitempty"`

	// Diagnostic is set when the analysis failed.
	Diagnostic *DiagnosticResult `json:"diagnostic,omitempty"`

	// Trace holds the remark lines of the run.
	Trace []string `json:"trace,omitempty"`

	// Errors contains expectation failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(function string) *Result {
	return &Result{
		Pass:     true,
		Function: function,
		Entries:  []EntryResult{},
		Errors:   []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Entry returns the entry of value, or false.
func (r *Result) Entry(value string) (EntryResult, bool) {
	for _, e := range r.Entries {
		if e.Value == value {
			return e, true
		}
	}
	return EntryResult{}, false
}
