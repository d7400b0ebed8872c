package usage

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/specflow/internal/dataflow"
	"github.com/roach88/specflow/internal/model"
	"github.com/roach88/specflow/internal/pipeline"
	"github.com/roach88/specflow/internal/summary"
)

// ProcessorName is the name of the usage analysis in a pipeline.
const ProcessorName = "usage_analysis"

// Processor annotates every function variant with its UsageState.
type Processor struct {
	policy       summary.MissingPolicy
	dataflowOpts []dataflow.Option
}

var _ pipeline.CompositionalProcessor = (*Processor)(nil)

// Option configures a Processor.
type Option func(*Processor)

// WithMissingPolicy sets how callees without a summary are treated.
func WithMissingPolicy(p summary.MissingPolicy) Option {
	return func(proc *Processor) { proc.policy = p }
}

// WithMaxIterations bounds the dataflow iterations per function.
func WithMaxIterations(n int) Option {
	return func(proc *Processor) {
		proc.dataflowOpts = append(proc.dataflowOpts, dataflow.WithMaxIterations(n))
	}
}

// NewProcessor creates the usage analysis processor.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{policy: summary.Lenient}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) Name() string { return ProcessorName }

// Process analyzes the code of one function variant and folds in the
// memory of its declared specification. A summary from an earlier round is
// the starting point, so summaries only grow.
func (p *Processor) Process(_ context.Context, holder *pipeline.TargetsHolder, env *model.GlobalEnv,
	fun pipeline.FunID, data *pipeline.FunctionData) (*pipeline.FunctionData, error) {
	cache := summary.NewCache(holder, env, fun, p.policy)
	seed := NewUsageState()
	if prev, ok := pipeline.Get[*UsageState](&data.Annotations); ok {
		seed = prev.Clone()
	}

	state := summary.Summarize[*UsageState](&analysis{env: env, cache: cache}, fun, data, seed, p.dataflowOpts...)
	ComputeSpecUsage(env, &env.Function(fun).Spec, state)
	if err := cache.Err(); err != nil {
		return nil, err
	}

	pipeline.Set(&data.Annotations, state)
	slog.Debug("usage computed",
		"function", env.FunctionName(fun),
		"variant", data.Variant,
		"accessed", state.Accessed.All.Len(),
		"modified", state.Modified.All.Len())
	return data, nil
}

// Seed installs the empty state unless a state is present.
func (p *Processor) Seed(_ *model.GlobalEnv, _ pipeline.FunID, data *pipeline.FunctionData) *pipeline.FunctionData {
	if !pipeline.Has[*UsageState](&data.Annotations) {
		pipeline.Set(&data.Annotations, NewUsageState())
	}
	return data
}

// Unchanged compares the usage states of two versions of a variant.
func (p *Processor) Unchanged(before, after *pipeline.FunctionData) bool {
	b, ok := pipeline.Get[*UsageState](&before.Annotations)
	if !ok {
		return false
	}
	a, ok := pipeline.Get[*UsageState](&after.Annotations)
	return ok && a.Equal(b)
}

// Get returns the usage state of an analyzed function variant. It panics
// if the usage analysis has not run on it.
func Get(data *pipeline.FunctionData) *UsageState {
	return pipeline.MustGet[*UsageState](&data.Annotations)
}

// DumpResult writes the usage of every function of the target modules.
func (p *Processor) DumpResult(w io.Writer, env *model.GlobalEnv, holder *pipeline.TargetsHolder) error {
	return WriteSnapshots(w, Snapshots(env, holder))
}
