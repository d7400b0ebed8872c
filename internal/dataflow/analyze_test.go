package dataflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specflow/internal/bytecode"
	"github.com/roach88/specflow/internal/ir"
)

// visited records the offsets executed on some path to a point.
type visited struct {
	offsets *SetDomain[offsetKey]
}

type offsetKey ir.CodeOffset

func (o offsetKey) Key() string { return fmt.Sprintf("%05d", o) }

func newVisited() *visited { return &visited{offsets: NewSetDomain[offsetKey]()} }

func (v *visited) Join(other *visited) JoinResult { return v.offsets.Join(other.offsets) }
func (v *visited) Clone() *visited                { return &visited{offsets: v.offsets.Clone()} }

type offsetCollector struct {
	backward bool
	executed int
}

func (c *offsetCollector) Execute(state *visited, _ bytecode.Bytecode, offset ir.CodeOffset) {
	c.executed++
	state.offsets.Insert(offsetKey(offset))
}

func (c *offsetCollector) Backward() bool { return c.backward }

func offsets(v *visited) []offsetKey { return v.offsets.Items() }

// loop:
//
//	0: branch L1 else L2
//	1: label L1
//	2: nop
//	3: jump L1
//	4: label L2
//	5: ret
func loopCode() []bytecode.Bytecode {
	return []bytecode.Bytecode{
		bytecode.Branch{Then: 1, Else: 2},
		bytecode.Label{Label: 1},
		bytecode.Nop{},
		bytecode.Jump{Target: 1},
		bytecode.Label{Label: 2},
		bytecode.Ret{},
	}
}

func TestAnalyzeForwardLoop(t *testing.T) {
	code := loopCode()
	cfg := bytecode.NewCFG(code)
	tf := &offsetCollector{}

	states := Analyze[*visited](tf, code, cfg, newVisited())

	require.Len(t, states, 3)
	assert.Equal(t, []offsetKey{0}, offsets(states[0].Post))
	assert.Equal(t, []offsetKey{0, 1, 2, 3}, offsets(states[1].Post))
	assert.Equal(t, []offsetKey{0, 1, 2, 3}, offsets(states[1].Pre), "loop back edge reaches the head")
	assert.Equal(t, []offsetKey{0, 4, 5}, offsets(states[2].Post))
	assert.Equal(t, []bytecode.BlockID{0, 1, 2}, states.SortedIDs())
}

func TestAnalyzeBackward(t *testing.T) {
	code := loopCode()
	cfg := bytecode.NewCFG(code)

	states := Analyze[*visited](&offsetCollector{backward: true}, code, cfg, newVisited())

	// The loop body never reaches an exit, so it is not analyzed.
	require.Len(t, states, 2)
	assert.Equal(t, []offsetKey{4, 5}, offsets(states[2].Post))
	assert.Equal(t, []offsetKey{0, 4, 5}, offsets(states[0].Post))
}

func TestAnalyzeEmptyCode(t *testing.T) {
	states := Analyze[*visited](&offsetCollector{}, nil, bytecode.NewCFG(nil), newVisited())
	assert.Empty(t, states)
}

func TestAnalyzeSkipsUnreachable(t *testing.T) {
	code := []bytecode.Bytecode{bytecode.Ret{}, bytecode.Nop{}, bytecode.Ret{}}
	states := Analyze[*visited](&offsetCollector{}, code, bytecode.NewCFG(code), newVisited())
	assert.Len(t, states, 1)
}

func TestAnalyzeDoesNotMutateInitial(t *testing.T) {
	code := loopCode()
	initial := newVisited()
	Analyze[*visited](&offsetCollector{}, code, bytecode.NewCFG(code), initial)
	assert.True(t, initial.offsets.IsEmpty())
}

// counter is a domain of unbounded height: every join changes it.
type counter struct{ n int }

func (c *counter) Join(other *counter) JoinResult {
	c.n += other.n + 1
	return Changed
}
func (c *counter) Clone() *counter { return &counter{n: c.n} }

type noop struct{}

func (noop) Execute(*counter, bytecode.Bytecode, ir.CodeOffset) {}
func (noop) Backward() bool                                     { return false }

func TestAnalyzeIterationBudget(t *testing.T) {
	code := loopCode()
	cfg := bytecode.NewCFG(code)

	defer func() {
		iv := ir.AsInvariantViolation(recover())
		require.NotNil(t, iv)
		assert.Equal(t, ir.CodeNoFixedPoint, iv.Code)
	}()
	Analyze[*counter](noop{}, code, cfg, &counter{}, WithMaxIterations(50))
	t.Fatal("expected panic")
}
