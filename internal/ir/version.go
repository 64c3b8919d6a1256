package ir

// Version constants for the graph schema and the analysis.
const (
	// IRVersion is the program graph schema version.
	IRVersion = "1"

	// AnalysisVersion is the version of the noise rule set. Bump it whenever
	// a rule changes the bound it produces; stored runs record it.
	AnalysisVersion = "0.1.0"
)
