package dataflow

import (
	"log/slog"
	"slices"

	"github.com/roach88/specflow/internal/bytecode"
	"github.com/roach88/specflow/internal/ir"
)

// TransferFunctions defines an analysis over single instructions. Execute
// updates state in place with the effect of instr at offset.
type TransferFunctions[S any] interface {
	Execute(state S, instr bytecode.Bytecode, offset ir.CodeOffset)
	Backward() bool
}

// BlockState is the state on entry to and exit from a block, in the
// direction of the analysis.
type BlockState[S any] struct {
	Pre  S
	Post S
}

// StateMap holds the state of every reachable block after the fixed point.
type StateMap[S any] map[bytecode.BlockID]BlockState[S]

// SortedIDs returns the analyzed blocks in id order.
func (m StateMap[S]) SortedIDs() []bytecode.BlockID {
	ids := make([]bytecode.BlockID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// DefaultMaxIterationsPerBlock bounds block executions relative to the size
// of the CFG.
const DefaultMaxIterationsPerBlock = 1000

type config struct {
	maxIterations int
}

// Option configures Analyze.
type Option func(*config)

// WithMaxIterations sets the maximum number of block executions before the
// analysis is considered divergent. Zero or less keeps the default.
func WithMaxIterations(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// Analyze computes the fixed point of tf over code.
//
// Forward analyses start at the entry block, backward ones at the exit
// blocks, each seeded with a clone of initial. A block's exit state is
// joined into the entry state of each successor (predecessor when
// backward); a successor is queued when that join changes it. Exceeding
// the iteration budget means a domain of unbounded height and panics with
// an InvariantViolation.
func Analyze[S Domain[S]](tf TransferFunctions[S], code []bytecode.Bytecode, cfg *bytecode.CFG,
	initial S, opts ...Option) StateMap[S] {
	c := config{maxIterations: DefaultMaxIterationsPerBlock * max(cfg.Len(), 1)}
	for _, opt := range opts {
		opt(&c)
	}

	states := make(StateMap[S])
	work := newWorklist()

	var starts []bytecode.BlockID
	if tf.Backward() {
		starts = cfg.ExitBlocks()
	} else if entry, ok := cfg.EntryBlock(); ok {
		starts = []bytecode.BlockID{entry}
	}
	for _, id := range starts {
		states[id] = BlockState[S]{Pre: initial.Clone()}
		work.push(id)
	}

	iterations := 0
	for {
		id, ok := work.pop()
		if !ok {
			break
		}
		iterations++
		if iterations > c.maxIterations {
			ir.Violate(ir.CodeNoFixedPoint, "dataflow analysis exceeded %d block executions", c.maxIterations)
		}

		st := states[id]
		post := executeBlock(tf, code, cfg, id, st.Pre.Clone())
		st.Post = post
		states[id] = st

		next := cfg.Successors(id)
		if tf.Backward() {
			next = cfg.Predecessors(id)
		}
		for _, n := range next {
			existing, seen := states[n]
			if !seen {
				states[n] = BlockState[S]{Pre: post.Clone()}
				work.push(n)
				continue
			}
			if existing.Pre.Join(post) == Changed {
				states[n] = existing
				work.push(n)
			}
		}
	}

	slog.Debug("dataflow fixed point reached",
		"blocks", cfg.Len(),
		"iterations", iterations)
	return states
}

func executeBlock[S any](tf TransferFunctions[S], code []bytecode.Bytecode, cfg *bytecode.CFG,
	id bytecode.BlockID, state S) S {
	offsets := cfg.Instructions(id)
	if tf.Backward() {
		for i := len(offsets) - 1; i >= 0; i-- {
			tf.Execute(state, code[offsets[i]], offsets[i])
		}
		return state
	}
	for _, off := range offsets {
		tf.Execute(state, code[off], off)
	}
	return state
}
