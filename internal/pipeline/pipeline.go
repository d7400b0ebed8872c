package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/specflow/internal/model"
)

// Processor transforms or annotates the data of one function variant.
//
// Process receives a private copy of the variant's data and returns the
// data to store. It may read the data of other functions from the holder;
// callees of fun have been processed before fun unless they share its
// component.
type Processor interface {
	Name() string
	Process(ctx context.Context, holder *TargetsHolder, env *model.GlobalEnv, fun FunID, data *FunctionData) (*FunctionData, error)
	DumpResult(w io.Writer, env *model.GlobalEnv, holder *TargetsHolder) error
}

// CompositionalProcessor is a Processor whose results are summaries that
// callers read. Members of a cyclic component are seeded before the first
// round and re-processed until Unchanged holds for all of them.
type CompositionalProcessor interface {
	Processor

	// Seed returns data carrying the least summary, so that members of a
	// cycle find a summary for each other in the first round.
	Seed(env *model.GlobalEnv, fun FunID, data *FunctionData) *FunctionData

	// Unchanged reports whether after carries the same summary as before.
	Unchanged(before, after *FunctionData) bool
}

// DefaultMaxRounds bounds the rounds spent on one cyclic component.
const DefaultMaxRounds = 1000

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxRounds sets the round quota for cyclic components.
func WithMaxRounds(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxRounds = n
		}
	}
}

// WithParallelism processes up to n independent components at once.
// Values below 2 keep processing sequential.
func WithParallelism(n int) Option {
	return func(p *Pipeline) {
		p.parallelism = max(n, 1)
	}
}

// Pipeline runs processors over every function of a program.
type Pipeline struct {
	processors  []Processor
	maxRounds   int
	parallelism int
}

// New creates a pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{maxRounds: DefaultMaxRounds, parallelism: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddProcessor appends a processor. Processors run in the order added.
func (p *Pipeline) AddProcessor(proc Processor) *Pipeline {
	p.processors = append(p.processors, proc)
	return p
}

// Processors returns the processors in run order.
func (p *Pipeline) Processors() []Processor { return p.processors }

// Run applies every processor to every function in holder.
//
// Processing stops at the first error. Invariant violations raised by a
// processor propagate as panics on the calling goroutine, also when
// components are processed in parallel.
func (p *Pipeline) Run(ctx context.Context, env *model.GlobalEnv, holder *TargetsHolder) error {
	for _, proc := range p.processors {
		graph := NewCallGraph(holder)
		sccs := graph.SCCs()
		slog.Info("running processor",
			"processor", proc.Name(),
			"functions", len(graph.Nodes()),
			"components", len(sccs))

		if err := p.runProcessor(ctx, proc, env, holder, graph, sccs); err != nil {
			return fmt.Errorf("processor %s: %w", proc.Name(), err)
		}
	}
	return nil
}

func (p *Pipeline) runProcessor(ctx context.Context, proc Processor, env *model.GlobalEnv,
	holder *TargetsHolder, graph *CallGraph, sccs []Component) error {
	if p.parallelism <= 1 {
		for _, c := range sccs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.processComponent(ctx, proc, env, holder, c); err != nil {
				return err
			}
		}
		return nil
	}

	for level, comps := range graph.Levels(sccs) {
		slog.Debug("processing level",
			"processor", proc.Name(),
			"level", level,
			"components", len(comps))
		if err := p.runLevel(ctx, proc, env, holder, comps); err != nil {
			return err
		}
	}
	return nil
}

// errPanicked stops the errgroup after a worker panicked; the panic itself
// is re-raised once all workers returned.
var errPanicked = errors.New("processor panicked")

func (p *Pipeline) runLevel(ctx context.Context, proc Processor, env *model.GlobalEnv,
	holder *TargetsHolder, comps []Component) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)

	var (
		once      sync.Once
		recovered any
	)
	for _, c := range comps {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { recovered = r })
					err = errPanicked
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			return p.processComponent(gctx, proc, env, holder, c)
		})
	}
	err := g.Wait()
	if recovered != nil {
		panic(recovered)
	}
	return err
}

func (p *Pipeline) processComponent(ctx context.Context, proc Processor, env *model.GlobalEnv,
	holder *TargetsHolder, c Component) error {
	comp, compositional := proc.(CompositionalProcessor)
	if !c.Cyclic || !compositional {
		for _, f := range c.Members {
			if _, err := processFunction(ctx, proc, env, holder, f); err != nil {
				return err
			}
		}
		return nil
	}

	names := make([]string, len(c.Members))
	for i, f := range c.Members {
		names[i] = env.FunctionName(f)
		for _, data := range holder.Targets(f) {
			holder.Set(f, comp.Seed(env, f, data.Clone()))
		}
	}

	quota := newRoundQuota(p.maxRounds)
	for {
		if err := quota.check(proc.Name(), names); err != nil {
			slog.Error("cyclic component did not converge",
				"processor", proc.Name(),
				"functions", names,
				"rounds", quota.current)
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		changed := false
		for _, f := range c.Members {
			results, err := processFunction(ctx, proc, env, holder, f)
			if err != nil {
				return err
			}
			for _, r := range results {
				if !comp.Unchanged(r.before, r.after) {
					changed = true
				}
			}
		}
		if !changed {
			slog.Debug("cyclic component converged",
				"processor", proc.Name(),
				"functions", names,
				"rounds", quota.current)
			return nil
		}
	}
}

type processed struct {
	before, after *FunctionData
}

func processFunction(ctx context.Context, proc Processor, env *model.GlobalEnv,
	holder *TargetsHolder, f FunID) ([]processed, error) {
	var out []processed
	for _, data := range holder.Targets(f) {
		after, err := proc.Process(ctx, holder, env, f, data.Clone())
		if err != nil {
			return nil, fmt.Errorf("%s [%s]: %w", env.FunctionName(f), data.Variant, err)
		}
		holder.Set(f, after)
		out = append(out, processed{before: data, after: after})
	}
	slog.Debug("function processed",
		"processor", proc.Name(),
		"function", env.FunctionName(f),
		"variants", len(out))
	return out, nil
}

// DumpResults writes the result of every processor to w.
func (p *Pipeline) DumpResults(w io.Writer, env *model.GlobalEnv, holder *TargetsHolder) error {
	for _, proc := range p.processors {
		if err := proc.DumpResult(w, env, holder); err != nil {
			return fmt.Errorf("dump %s: %w", proc.Name(), err)
		}
	}
	return nil
}
