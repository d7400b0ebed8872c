package harness

import "github.com/roach88/specflow/internal/usage"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expectations, assertions and principles hold.
	Pass bool `json:"pass"`

	// RunID is the id the run was stored under.
	RunID string `json:"run_id,omitempty"`

	// Summaries are the usage summaries as read back from the store.
	Summaries []usage.Snapshot `json:"summaries"`

	// Dump is the textual usage dump used for golden comparison.
	Dump string `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Summaries: []usage.Snapshot{},
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Summary returns the summary of a function variant.
func (r *Result) Summary(function, variant string) (usage.Snapshot, bool) {
	if variant == "" {
		variant = "baseline"
	}
	for _, s := range r.Summaries {
		if s.Function == function && s.Variant == variant {
			return s, true
		}
	}
	return usage.Snapshot{}, false
}
