package model

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specflow/internal/ir"
)

func TestNodeClockMonotonic(t *testing.T) {
	c := NewNodeClock()
	assert.Equal(t, ir.NodeID(1), c.Next())
	assert.Equal(t, ir.NodeID(2), c.Next())
	assert.Equal(t, ir.NodeID(2), c.Current())

	c = NewNodeClockAt(41)
	assert.Equal(t, ir.NodeID(42), c.Next())
}

func TestNodeClockConcurrent(t *testing.T) {
	c := NewNodeClock()
	var wg sync.WaitGroup
	seen := sync.Map{}
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_, dup := seen.LoadOrStore(c.Next(), true)
				assert.False(t, dup)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, ir.NodeID(800), c.Current())
}

func TestEnvDeclarations(t *testing.T) {
	env := NewGlobalEnv()
	m := env.AddModule(big.NewInt(1), "M", true)
	s := m.AddStruct("S", 1, m.Field("value", ir.U64Type))
	f := m.AddFunction("f", 0)
	m.AddSpecFun("spec_f", 0, ir.BoolType)

	found, ok := env.FindModule("M")
	require.True(t, ok)
	assert.Same(t, m, found)

	got, ok := m.FindStruct("S")
	require.True(t, ok)
	assert.Same(t, s, got)
	_, ok = m.FindStruct("T")
	assert.False(t, ok)

	field, ok := m.FindField(s, "value")
	require.True(t, ok)
	assert.Equal(t, "value", env.FieldName(m.ID, s.ID, field.ID))

	assert.Equal(t, "M::S", env.QualifiedStructName(m.ID, s.ID))
	assert.Equal(t, "M::f", env.FunctionName(m.FunctionID(f.ID)))
	assert.Equal(t, "M::spec_f", env.SpecFunName(m.ID, 0))
	assert.Equal(t, []ir.QualifiedID[ir.FunID]{m.FunctionID(f.ID)}, env.Functions())
}

func TestEnvNames(t *testing.T) {
	env := NewGlobalEnv()
	m := env.AddModule(nil, "Coin", true)
	s := m.AddStruct("Balance", 1)

	mem := ir.QualifiedInstID[ir.StructID]{Module: m.ID, ID: s.ID, Inst: []ir.Type{ir.U64Type}}
	assert.Equal(t, "Coin::Balance<u64>", env.MemoryName(mem))
	assert.Equal(t, "Coin::Balance", env.MemoryName(mem.Qualified().Instantiate(nil)))

	ty := ir.ReferenceType{Mutable: true, Inner: ir.VectorType{Elem: m.StructType(s, ir.TypeParameter(0))}}
	assert.Equal(t, "&mut vector<Coin::Balance<#0>>", env.TypeString(ty))
	assert.Equal(t, "(bool, address)", env.TypeString(ir.TupleType{Elems: []ir.Type{ir.BoolType, ir.AddressType}}))
}

func TestEnvNodeTables(t *testing.T) {
	env := NewGlobalEnv()
	loc := ir.Loc{File: "a.move", Line: 3, Column: 7}
	id := env.NewNode(loc, ir.BoolType)

	assert.Equal(t, ir.BoolType, env.NodeType(id))
	assert.Equal(t, loc, env.NodeLoc(id))
	_, ok := env.NodeInstantiation(id)
	assert.False(t, ok)

	env.SetNodeInstantiation(id, []ir.Type{ir.U64Type})
	inst, ok := env.NodeInstantiation(id)
	require.True(t, ok)
	assert.Equal(t, []ir.Type{ir.U64Type}, inst)

	assert.Equal(t, ir.ErrorType{}, env.NodeType(9999))
	assert.Equal(t, 1, env.NodeCount())
}

func TestEnvUnknownDeclarationPanics(t *testing.T) {
	env := NewGlobalEnv()
	defer func() {
		iv := ir.AsInvariantViolation(recover())
		require.NotNil(t, iv)
		assert.Equal(t, ir.CodeInvalidExpression, iv.Code)
	}()
	env.Module(3)
	t.Fatal("expected panic")
}

func TestComputeSpecFunUsage(t *testing.T) {
	env := NewGlobalEnv()
	a := env.Arena()
	m := env.AddModule(nil, "M", true)
	s := m.AddStruct("S", 0)
	r := m.AddStruct("R", 0)

	// inner() reads S in its body; outer() calls inner and declares R.
	inner := m.AddSpecFun("inner", 0, ir.BoolType)
	existsID := env.NewInstNode(ir.Loc{}, ir.BoolType, m.StructType(s))
	addr := a.Value(env.NewNode(ir.Loc{}, ir.AddressType), ir.Address(big.NewInt(1)))
	inner.Body = a.Call(existsID, ir.ExistsOp(nil), addr)

	outer := m.AddSpecFun("outer", 0, ir.BoolType)
	outer.UsedMemory = []ir.QualifiedInstID[ir.StructID]{{Module: m.ID, ID: r.ID}}
	callID := env.NewInstNode(ir.Loc{}, ir.BoolType)
	outer.Body = a.Call(callID, ir.FunctionOp(m.ID, inner.ID, nil))

	require.NoError(t, env.ComputeSpecFunUsage())

	sMem := ir.QualifiedInstID[ir.StructID]{Module: m.ID, ID: s.ID, Inst: []ir.Type{}}
	require.Len(t, inner.UsedMemory, 1)
	assert.True(t, sMem.Equal(inner.UsedMemory[0]))

	require.Len(t, outer.UsedMemory, 2)
	assert.Equal(t, "M::S", env.MemoryName(outer.UsedMemory[0]))
	assert.Equal(t, "M::R", env.MemoryName(outer.UsedMemory[1]))
}

func TestComputeSpecFunUsageForwardAndRecursive(t *testing.T) {
	env := NewGlobalEnv()
	a := env.Arena()
	m := env.AddModule(nil, "M", true)
	s := m.AddStruct("S", 0)

	// first() calls second(), declared later; second() reads S and calls
	// first().
	first := m.AddSpecFun("first", 0, ir.BoolType)
	second := m.AddSpecFun("second", 0, ir.BoolType)
	first.Body = a.Call(env.NewInstNode(ir.Loc{}, ir.BoolType), ir.FunctionOp(m.ID, second.ID, nil))
	addr := a.Value(env.NewNode(ir.Loc{}, ir.AddressType), ir.Address(big.NewInt(1)))
	exists := a.Call(env.NewInstNode(ir.Loc{}, ir.BoolType, m.StructType(s)), ir.ExistsOp(nil), addr)
	recurse := a.Call(env.NewInstNode(ir.Loc{}, ir.BoolType), ir.FunctionOp(m.ID, first.ID, nil))
	second.Body = a.Call(env.NewNode(ir.Loc{}, ir.BoolType), ir.Op(ir.OpAnd), exists, recurse)

	require.NoError(t, env.ComputeSpecFunUsage())

	require.Len(t, first.UsedMemory, 1)
	assert.Equal(t, "M::S", env.MemoryName(first.UsedMemory[0]))
	require.Len(t, second.UsedMemory, 1)
	assert.Equal(t, "M::S", env.MemoryName(second.UsedMemory[0]))
}

func TestComputeSpecFunUsageGrowingInstantiation(t *testing.T) {
	env := NewGlobalEnv()
	a := env.Arena()
	m := env.AddModule(nil, "M", true)
	r := m.AddStruct("R", 1)

	// f<T>() reads R<T> and calls f<vector<T>>().
	f := m.AddSpecFun("f", 1, ir.BoolType)
	param := ir.TypeParameter(0)
	addr := a.Value(env.NewNode(ir.Loc{}, ir.AddressType), ir.Address(big.NewInt(1)))
	exists := a.Call(env.NewInstNode(ir.Loc{}, ir.BoolType, m.StructType(r, param)), ir.ExistsOp(nil), addr)
	recurse := a.Call(env.NewInstNode(ir.Loc{}, ir.BoolType, ir.VectorType{Elem: param}), ir.FunctionOp(m.ID, f.ID, nil))
	f.Body = a.Call(env.NewNode(ir.Loc{}, ir.BoolType), ir.Op(ir.OpAnd), exists, recurse)

	err := env.ComputeSpecFunUsage()
	var nc *SpecFunUsageError
	require.ErrorAs(t, err, &nc)
	assert.Equal(t, "M::f", nc.Fun)
	assert.Greater(t, nc.Depth, nc.Limit)
}

func TestInvariantDelegation(t *testing.T) {
	env := NewGlobalEnv()
	m := env.AddModule(nil, "M", true)
	f := m.AddFunction("f", 0)
	g := m.AddFunction("g", 0)
	g.DelegatesInvariants = true

	assert.False(t, env.IsInvariantCheckingDelegated(m.FunctionID(f.ID)))
	assert.True(t, env.IsInvariantCheckingDelegated(m.FunctionID(g.ID)))
}
