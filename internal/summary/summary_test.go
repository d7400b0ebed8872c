package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specflow/internal/bytecode"
	"github.com/roach88/specflow/internal/dataflow"
	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/model"
	"github.com/roach88/specflow/internal/pipeline"
)

type name string

func (n name) Key() string { return string(n) }

// calls is the set of functions a function calls, including those called
// by its callees.
type calls = *dataflow.SetDomain[name]

type callAnalysis struct {
	env     *model.GlobalEnv
	cache   *Cache
	toSumCt int
}

func (a *callAnalysis) Backward() bool { return false }

func (a *callAnalysis) Execute(state calls, instr bytecode.Bytecode, _ ir.CodeOffset) {
	call, ok := instr.(bytecode.Call)
	if !ok || !call.Oper.IsCall() {
		return
	}
	callee := call.Oper.Callee()
	state.Insert(name(a.env.FunctionName(callee)))
	if s, ok := Get[calls](a.cache, callee, pipeline.Baseline); ok {
		state.Join(s)
	}
}

func (a *callAnalysis) ToSummary(state calls, _ pipeline.FunID, _ *pipeline.FunctionData) calls {
	a.toSumCt++
	return state
}

type fixture struct {
	env    *model.GlobalEnv
	holder *pipeline.TargetsHolder
	f, g   pipeline.FunID
}

// newFixture declares f calling g.
func newFixture() *fixture {
	env := model.NewGlobalEnv()
	m := env.AddModule(nil, "M", true)
	fx := &fixture{
		env:    env,
		holder: pipeline.NewTargetsHolder(),
		f:      m.FunctionID(m.AddFunction("f", 0).ID),
		g:      m.FunctionID(m.AddFunction("g", 0).ID),
	}
	code := []bytecode.Bytecode{
		bytecode.Branch{Then: 1, Else: 2},
		bytecode.Label{Label: 1},
		bytecode.Call{Oper: bytecode.FunctionCall(bytecode.OpFunction, fx.g.Module, fx.g.ID, nil)},
		bytecode.Ret{},
		bytecode.Label{Label: 2},
		bytecode.Ret{},
	}
	fx.holder.AddTarget(fx.f, pipeline.NewFunctionData(pipeline.Baseline, code, nil))
	fx.holder.AddTarget(fx.g, pipeline.NewFunctionData(pipeline.Baseline, []bytecode.Bytecode{bytecode.Ret{}}, nil))
	return fx
}

func (fx *fixture) summarize(policy MissingPolicy, seed calls) (calls, *Cache, *callAnalysis) {
	cache := NewCache(fx.holder, fx.env, fx.f, policy)
	a := &callAnalysis{env: fx.env, cache: cache}
	data, _ := fx.holder.Get(fx.f, pipeline.Baseline)
	return Summarize[calls](a, fx.f, data, seed), cache, a
}

func TestSummarizeUsesCalleeSummary(t *testing.T) {
	fx := newFixture()
	gData, _ := fx.holder.Get(fx.g, pipeline.Baseline)
	gSummary := dataflow.NewSetDomain[name]()
	gSummary.Insert("M::h")
	pipeline.Set[calls](&gData.Annotations, gSummary)

	got, cache, a := fx.summarize(Strict, dataflow.NewSetDomain[name]())

	assert.Equal(t, []name{"M::g", "M::h"}, got.Items(), "exit states of both branches are joined")
	assert.NoError(t, cache.Err())
	assert.Equal(t, 1, a.toSumCt)
}

func TestSummarizeKeepsSeed(t *testing.T) {
	fx := newFixture()
	seed := dataflow.NewSetDomain[name]()
	seed.Insert("M::prev")

	got, _, _ := fx.summarize(Lenient, seed)

	assert.Equal(t, []name{"M::g", "M::prev"}, got.Items())
	assert.Equal(t, []name{"M::prev"}, seed.Items(), "seed is not modified")
}

func TestMissingSummaryLenient(t *testing.T) {
	fx := newFixture()
	got, cache, _ := fx.summarize(Lenient, dataflow.NewSetDomain[name]())

	assert.Equal(t, []name{"M::g"}, got.Items())
	assert.NoError(t, cache.Err())
}

func TestMissingSummaryStrict(t *testing.T) {
	fx := newFixture()
	_, cache, _ := fx.summarize(Strict, dataflow.NewSetDomain[name]())

	err := cache.Err()
	require.Error(t, err)
	assert.True(t, IsMissingSummaryError(err))
	assert.Equal(t, "no baseline summary for M::g called from M::f", err.Error())
}

func TestGetUnknownFunction(t *testing.T) {
	fx := newFixture()
	cache := NewCache(fx.holder, fx.env, fx.f, Lenient)
	_, ok := Get[calls](cache, fx.g, pipeline.Verification)
	assert.False(t, ok)
}

func TestMissingPolicyString(t *testing.T) {
	assert.Equal(t, "lenient", Lenient.String())
	assert.Equal(t, "strict", Strict.String())
}
