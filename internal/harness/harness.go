package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/roach88/specflow/internal/compiler"
	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/pipeline"
	"github.com/roach88/specflow/internal/store"
	"github.com/roach88/specflow/internal/summary"
	"github.com/roach88/specflow/internal/testutil"
	"github.com/roach88/specflow/internal/usage"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database for isolation.
// Execution flow:
//  1. Load and compile the program description
//  2. Run the usage analysis
//  3. Persist the summaries and read them back
//  4. Evaluate expectations, assertions and principles on the read back
//     summaries
//
// Errors while loading, compiling or analyzing are compared against
// ExpectError and reported in the result. The returned error is reserved
// for store failures.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	prog, proc, err := analyze(ctx, scenario)
	if scenario.ExpectError != "" {
		switch {
		case err == nil:
			result.AddError(fmt.Sprintf("expected error containing %q, analysis succeeded", scenario.ExpectError))
		case !strings.Contains(err.Error(), scenario.ExpectError):
			result.AddError(fmt.Sprintf("expected error containing %q, got: %v", scenario.ExpectError, err))
		}
		return result, nil
	}
	if err != nil {
		result.AddError(err.Error())
		return result, nil
	}

	var dump bytes.Buffer
	if err := proc.DumpResult(&dump, prog.Env, prog.Holder); err != nil {
		return nil, fmt.Errorf("dump usage: %w", err)
	}
	result.Dump = dump.String()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	run := store.NewRun(testutil.FixedID(scenario.Name), scenario.Program, "", scenario.Strict)
	run, err = st.WriteRun(ctx, run, usage.Snapshots(prog.Env, prog.Holder))
	if err != nil {
		return nil, err
	}
	result.RunID = run.ID
	if result.Summaries, err = st.ReadSummaries(ctx, run.ID); err != nil {
		return nil, err
	}

	for _, s := range result.Summaries {
		for _, msg := range CheckPrinciples(s) {
			result.AddError(msg)
		}
	}
	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// analyze compiles the scenario's program and runs the usage analysis.
// An invariant violation escaping the analysis is returned as an error.
func analyze(ctx context.Context, scenario *Scenario) (prog *compiler.Program, proc *usage.Processor, err error) {
	src, err := compiler.LoadPath(scenario.Program)
	if err != nil {
		return nil, nil, err
	}
	if prog, err = compiler.Compile(src); err != nil {
		return nil, nil, err
	}

	policy := summary.Lenient
	if scenario.Strict {
		policy = summary.Strict
	}
	proc = usage.NewProcessor(usage.WithMissingPolicy(policy))
	parallelism := max(scenario.Parallelism, 1)

	defer func() {
		if r := recover(); r != nil {
			v := ir.AsInvariantViolation(r)
			if v == nil {
				panic(r)
			}
			err = v
		}
	}()
	err = pipeline.New(pipeline.WithParallelism(parallelism)).
		AddProcessor(proc).
		Run(ctx, prog.Env, prog.Holder)
	return prog, proc, err
}

// Failure is a scenario that failed in RunAll.
type Failure struct {
	Scenario string   `json:"scenario"`
	Errors   []string `json:"errors"`
}

// Report aggregates the outcome of several scenarios.
type Report struct {
	Total    int       `json:"total"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
}

// RunAll runs scenarios in order and aggregates their outcome. It stops
// at the first store failure.
func RunAll(ctx context.Context, scenarios []*Scenario) (*Report, error) {
	report := &Report{Total: len(scenarios)}
	for _, s := range scenarios {
		result, err := Run(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		if result.Pass {
			report.Passed++
			continue
		}
		report.Failed++
		report.Failures = append(report.Failures, Failure{Scenario: s.Name, Errors: result.Errors})
	}
	return report, nil
}
