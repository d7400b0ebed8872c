package ir

// Version constants recorded with persisted analysis runs.
const (
	// IRVersion is the expression encoding version. It changes whenever the
	// content hash of an unchanged expression would change.
	IRVersion = "1"

	// AnalyzerVersion is the version of the analysis tooling.
	AnalyzerVersion = "0.1.0"
)
