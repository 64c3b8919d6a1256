package ir

// NOTE: These are store-layer records, not part of the program graph.
// Big integers are carried as decimal strings, matching their TEXT columns.

// RunRecord is one persisted analysis run.
type RunRecord struct {
	ID              string `json:"id"`  // UUIDv7
	Seq             int64  `json:"seq"` // Logical clock
	Source          string `json:"source"`
	ModuleHash      string `json:"module_hash"`
	AnalysisVersion string `json:"analysis_version"`
}

// FunctionRecord is the summary of one analyzed function within a run.
type FunctionRecord struct {
	ID        int64  `json:"id"` // Auto-increment (store FK)
	RunID     string `json:"run_id"`
	Name      string `json:"name"`
	GraphHash string `json:"graph_hash"`
	MaxMANP   string `json:"max_manp"`
}

// AnnotationRecord is one annotation map entry.
type AnnotationRecord struct {
	Seq    int64   `json:"seq"` // Program order within the function
	Value  ValueID `json:"value"`
	Op     string  `json:"op"`
	SqNorm string  `json:"sq_norm"`
	MANP   string  `json:"manp"`
}
