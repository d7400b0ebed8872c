// Package summary connects per-function dataflow analyses to the results
// of callees. An Analysis runs over one function; the Cache hands it the
// frozen summaries of the functions it calls.
package summary

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/specflow/internal/dataflow"
	"github.com/roach88/specflow/internal/model"
	"github.com/roach88/specflow/internal/pipeline"
)

// MissingPolicy decides what an absent callee summary means.
type MissingPolicy uint8

const (
	// Lenient treats an absent summary as contributing nothing.
	Lenient MissingPolicy = iota

	// Strict records a MissingSummaryError for every absent summary.
	Strict
)

func (p MissingPolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// MissingSummaryError reports a callee without a summary under the strict
// policy.
type MissingSummaryError struct {
	Caller  string
	Callee  string
	Variant pipeline.Variant
}

func (e *MissingSummaryError) Error() string {
	return fmt.Sprintf("no %s summary for %s called from %s", e.Variant, e.Callee, e.Caller)
}

// IsMissingSummaryError reports whether err is or wraps a
// MissingSummaryError.
func IsMissingSummaryError(err error) bool {
	var me *MissingSummaryError
	return errors.As(err, &me)
}

// Cache is the view of one caller on the summaries of its callees.
type Cache struct {
	holder *pipeline.TargetsHolder
	env    *model.GlobalEnv
	caller pipeline.FunID
	policy MissingPolicy

	mu      sync.Mutex
	missing []error
}

// NewCache creates the view of caller on holder.
func NewCache(holder *pipeline.TargetsHolder, env *model.GlobalEnv, caller pipeline.FunID, policy MissingPolicy) *Cache {
	return &Cache{holder: holder, env: env, caller: caller, policy: policy}
}

// Get returns the summary of type S of a function variant. An absent
// summary yields false and, under the strict policy, is recorded.
func Get[S any](c *Cache, fun pipeline.FunID, variant pipeline.Variant) (S, bool) {
	if data, ok := c.holder.Get(fun, variant); ok {
		if s, ok := pipeline.Get[S](&data.Annotations); ok {
			return s, true
		}
	}
	if c.policy == Strict {
		c.mu.Lock()
		c.missing = append(c.missing, &MissingSummaryError{
			Caller:  c.env.FunctionName(c.caller),
			Callee:  c.env.FunctionName(fun),
			Variant: variant,
		})
		c.mu.Unlock()
	}
	var zero S
	return zero, false
}

// Err returns the recorded missing summaries, or nil.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.missing...)
}

// Analysis is a dataflow analysis whose final state becomes a summary.
type Analysis[S any] interface {
	dataflow.TransferFunctions[S]

	// ToSummary turns the joined state of a function into its summary.
	ToSummary(state S, fun pipeline.FunID, data *pipeline.FunctionData) S
}

// Summarize analyzes data starting from seed and returns its summary: the
// join of seed with the exit state of every block, passed through
// ToSummary. The seed is not modified.
func Summarize[S dataflow.Domain[S]](a Analysis[S], fun pipeline.FunID, data *pipeline.FunctionData,
	seed S, opts ...dataflow.Option) S {
	states := dataflow.Analyze[S](a, data.Code, data.CFG(), seed, opts...)
	summary := seed.Clone()
	for _, id := range states.SortedIDs() {
		summary.Join(states[id].Post)
	}
	return a.ToSummary(summary, fun, data)
}
