package compiler

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specflow/internal/bytecode"
	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/pipeline"
)

var programsDir = filepath.Join("..", "..", "testdata", "programs")

func compilePath(t *testing.T, path string) *Program {
	t.Helper()
	src, err := LoadPath(path)
	require.NoError(t, err)
	prog, err := Compile(src)
	require.NoError(t, err)
	return prog
}

func compileYAML(t *testing.T, doc string) (*Program, error) {
	t.Helper()
	src, err := LoadYAML([]byte(doc), "test.yaml")
	require.NoError(t, err)
	return Compile(src)
}

func TestCompileBankDirectory(t *testing.T) {
	prog := compilePath(t, filepath.Join(programsDir, "bank"))
	env := prog.Env

	m, ok := env.FindModule("Bank")
	require.True(t, ok)
	assert.True(t, m.IsTarget)
	assert.Len(t, m.Structs, 4)
	assert.Len(t, m.Functions, 4)
	assert.Equal(t, 5, prog.Holder.Len(), "four baseline variants and one verification variant")

	f, ok := m.FindSpecFun("balance_of")
	require.True(t, ok)
	require.Len(t, f.UsedMemory, 1)
	assert.Equal(t, "Bank::Account", env.MemoryName(f.UsedMemory[0]))
	assert.Equal(t, ir.U64Type, f.Result)

	audit, ok := m.FindFunction("audit")
	require.True(t, ok)
	assert.True(t, audit.DelegatesInvariants)

	withdraw, ok := m.FindFunction("withdraw")
	require.True(t, ok)
	conds := withdraw.Spec.Conditions
	require.Len(t, conds, 3)
	assert.Equal(t, ir.Requires, conds[0].Kind.Tag)
	assert.Equal(t, ir.Ensures, conds[1].Kind.Tag)
	assert.Equal(t, ir.Update, conds[2].Kind.Tag)
	require.Len(t, conds[2].AdditionalExps, 1)
	access, ok := conds[2].AdditionalExps[0].ExtractGhostMemAccess(env)
	require.True(t, ok)
	assert.Equal(t, "Bank::Ghost$total", env.MemoryName(access.Memory))

	data, ok := prog.Holder.Get(m.FunctionID(withdraw.ID), pipeline.Baseline)
	require.True(t, ok)
	require.Len(t, data.Code, 4)
	assert.IsType(t, bytecode.Ret{}, data.Code[3])
	call, ok := data.Code[0].(bytecode.Call)
	require.True(t, ok)
	assert.Equal(t, "Bank::fee", env.FunctionName(call.Oper.Callee()))

	deposit, _ := m.FindFunction("deposit")
	ver, ok := prog.Holder.Get(m.FunctionID(deposit.ID), pipeline.Verification)
	require.True(t, ok)
	prop, ok := ver.Code[1].(bytecode.Prop)
	require.True(t, ok)
	assert.Equal(t, bytecode.Assume, prop.Kind)
}

func TestCompileYAMLCycle(t *testing.T) {
	prog := compilePath(t, filepath.Join(programsDir, "cycle.yaml"))
	m, ok := prog.Env.FindModule("R")
	require.True(t, ok)

	ping, _ := m.FindFunction("ping")
	data, ok := prog.Holder.Get(m.FunctionID(ping.ID), pipeline.Baseline)
	require.True(t, ok)
	br, ok := data.Code[2].(bytecode.Branch)
	require.True(t, ok)
	assert.Equal(t, bytecode.LabelID(1), br.Then)
	assert.Equal(t, bytecode.LabelID(2), br.Else)

	cfg := data.CFG()
	assert.Greater(t, cfg.Len(), 1)

	graph := pipeline.NewCallGraph(prog.Holder)
	sccs := graph.SCCs()
	require.Len(t, sccs, 1)
	assert.True(t, sccs[0].Cyclic)
}

func TestCompileExpressions(t *testing.T) {
	prog, err := compileYAML(t, `
modules:
  - name: M
    target: true
    structs:
      - {name: S, type_params: 1, fields: [{name: v, type: "#0"}]}
    spec_funs:
      - name: get
        type_params: 1
        params: [{name: a, type: address}]
        result: "#0"
        body: {op: select, field: S.v, args: [{op: global, mem: "S<#0>", args: [{var: a}]}]}
    functions:
      - name: f
        locals: [u64, bool]
        spec:
          - kind: ensures
            exp:
              quant: forall
              ranges: [{name: x, type: address}]
              where: {op: exists, mem: "S<u64>", args: [{var: x}]}
              body:
                let: [{name: y, type: u64, bind: {op: function, fun: get, inst: [u64], args: [{var: x}]}}]
                body: {op: eq, args: [{var: y}, {temp: 0}]}
          - kind: aborts_if
            exp:
              if: {temp: 1}
              then: {bool: true}
              else: {op: exists, mem: "S<bool>", label: 3, args: [{address: "0x1"}]}
`)
	require.NoError(t, err)
	env := prog.Env
	m, _ := env.FindModule("M")

	get, _ := m.FindSpecFun("get")
	require.Len(t, get.UsedMemory, 1)
	assert.Equal(t, "M::S<#0>", env.MemoryName(get.UsedMemory[0]))

	f, _ := m.FindFunction("f")
	ensures := f.Spec.Conditions[0].Exp
	_, ok := ensures.Data().(ir.Quant)
	require.True(t, ok)
	assert.Equal(t, ir.BoolType, env.NodeType(ensures.NodeID()))

	var names []string
	for _, use := range ensures.UsedMemory(env) {
		names = append(names, env.MemoryName(use.Memory))
	}
	assert.ElementsMatch(t, []string{"M::S<u64>"}, names, "get<u64> instantiates S<#0> to the same memory as the filter")
	temps := ensures.Temporaries(env)
	require.Len(t, temps, 1)
	assert.Equal(t, ir.TempIndex(0), temps[0].Index)
	assert.Equal(t, ir.U64Type, temps[0].Type)

	abortsIf := f.Spec.Conditions[1].Exp
	uses := abortsIf.UsedMemory(env)
	require.Len(t, uses, 1)
	require.NotNil(t, uses[0].Label)
	assert.Equal(t, ir.MemoryLabel(3), *uses[0].Label)
}

func TestCompileResolutionErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
		msg  string
	}{
		{
			name: "unknown struct in code",
			doc: `
modules:
  - name: M
    functions:
      - {name: f, code: {baseline: [{op: exists, struct: Nope}]}}`,
			code: ErrUnresolved,
			msg:  "unknown struct M::Nope",
		},
		{
			name: "unknown callee",
			doc: `
modules:
  - name: M
    functions:
      - {name: f, code: {baseline: [{op: call, fun: "X::g"}]}}`,
			code: ErrUnresolved,
			msg:  "unknown module X",
		},
		{
			name: "unbound variable",
			doc: `
modules:
  - name: M
    functions:
      - {name: f, spec: [{kind: requires, exp: {var: z}}]}`,
			code: ErrUnresolved,
			msg:  "unbound variable z",
		},
		{
			name: "bad field type",
			doc: `
modules:
  - name: M
    structs:
      - {name: S, fields: [{name: v, type: "vector<"}]}`,
			code: ErrBadType,
		},
		{
			name: "wrong arity",
			doc: `
modules:
  - name: M
    structs: [{name: S, type_params: 1}]
    functions:
      - {name: f, code: {baseline: [{op: move_to, struct: S}]}}`,
			code: ErrBadInstr,
			msg:  "expects 1 type arguments, got 0",
		},
		{
			name: "bad write back root",
			doc: `
modules:
  - name: M
    functions:
      - {name: f, code: {baseline: [{op: write_back, root: heap}]}}`,
			code: ErrBadInstr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileYAML(t, tt.doc)
			require.Error(t, err)
			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.code, ce.Code)
			if tt.msg != "" {
				assert.Contains(t, ce.Message, tt.msg)
			}
		})
	}
}

func TestCompileRejectsInvalidDescription(t *testing.T) {
	_, err := compileYAML(t, `
modules:
  - name: M
    functions:
      - {name: f, spec: [{kind: struct_invariant, exp: {bool: true}}]}
      - {name: f}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[E104]")
	assert.Contains(t, err.Error(), "[E102]")
}

func TestGlobalInvariantsAreRegistered(t *testing.T) {
	prog, err := compileYAML(t, `
modules:
  - name: M
    structs: [{name: S}]
    invariants:
      - kind: global_invariant
        exp: {op: exists, mem: S, args: [{address: "0x1"}]}`)
	require.NoError(t, err)
	invs := prog.Env.GlobalInvariants()
	require.Len(t, invs, 1)
	require.Len(t, invs[0].Mem, 1)
	assert.Equal(t, "M::S", prog.Env.MemoryName(invs[0].Mem[0]))
}

func TestCompileRejectsGrowingSpecFunRecursion(t *testing.T) {
	const growing = `
modules:
  - name: M
    structs: [{name: R, type_params: 1}]
    spec_funs:
      - name: f
        type_params: 1
        params: [{name: a, type: address}]
        result: bool
        body:
          op: and
          args:
            - {op: exists, mem: "R<#0>", args: [{var: a}]}
            - {op: function, fun: f, inst: [%s], args: [{var: a}]}
`
	t.Run("growing instantiation fails", func(t *testing.T) {
		_, err := compileYAML(t, fmt.Sprintf(growing, `"vector<#0>"`))
		require.Error(t, err)
		var ce *CompileError
		require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
		assert.Equal(t, ErrSpecFunUse, ce.Code)
		assert.Contains(t, ce.Message, "M::f")
	})

	t.Run("same instantiation converges", func(t *testing.T) {
		prog, err := compileYAML(t, fmt.Sprintf(growing, `"#0"`))
		require.NoError(t, err)
		m, _ := prog.Env.FindModule("M")
		f, _ := m.FindSpecFun("f")
		require.Len(t, f.UsedMemory, 1)
		assert.Equal(t, "M::R<#0>", prog.Env.MemoryName(f.UsedMemory[0]))
	})
}

func TestCompileLabelledSpecFunCalls(t *testing.T) {
	const program = `
modules:
  - name: M
    structs: [{name: S}, {name: T}]
    spec_funs:
      - name: both
        params: [{name: a, type: address}]
        result: bool
        body: {op: and, args: [{op: exists, mem: S, args: [{var: a}]}, {op: exists, mem: T, args: [{var: a}]}]}
%s
    functions:
      - name: f
        spec:
          - kind: ensures
            exp: {op: function, fun: both, labels: %s, args: [{address: "0x1"}]}
`
	t.Run("one label per memory", func(t *testing.T) {
		prog, err := compileYAML(t, fmt.Sprintf(program, "", "[4, 9]"))
		require.NoError(t, err)
		m, _ := prog.Env.FindModule("M")
		f, _ := m.FindFunction("f")
		uses := f.Spec.Conditions[0].Exp.UsedMemory(prog.Env)
		require.Len(t, uses, 2)
		labels := map[string]ir.MemoryLabel{}
		for _, use := range uses {
			require.NotNil(t, use.Label)
			labels[prog.Env.MemoryName(use.Memory)] = *use.Label
		}
		assert.Equal(t, map[string]ir.MemoryLabel{"M::S": 4, "M::T": 9}, labels)
	})

	t.Run("label count must match used memory", func(t *testing.T) {
		_, err := compileYAML(t, fmt.Sprintf(program, "", "[4]"))
		var ce *CompileError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, ErrBadExp, ce.Code)
		assert.Contains(t, ce.Message, "uses 2 memories, got 1 labels")
	})

	t.Run("no labels in spec fun bodies", func(t *testing.T) {
		wrapper := `      - name: wrap
        result: bool
        body: {op: function, fun: both, labels: [1, 2], args: [{address: "0x1"}]}`
		_, err := compileYAML(t, fmt.Sprintf(program, wrapper, "[4, 9]"))
		var ce *CompileError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, ErrBadExp, ce.Code)
		assert.Contains(t, ce.Field, "spec_funs[1].body.labels")
	})
}

func TestGlobalInvariantSeesSpecFunMemory(t *testing.T) {
	prog, err := compileYAML(t, `
modules:
  - name: M
    structs: [{name: S}]
    invariants:
      - kind: global_invariant
        exp: {op: function, fun: later, args: []}
    spec_funs:
      - name: later
        result: bool
        body: {op: exists, mem: S, args: [{address: "0x1"}]}`)
	require.NoError(t, err)
	invs := prog.Env.GlobalInvariants()
	require.Len(t, invs, 1)
	require.Len(t, invs[0].Mem, 1)
	assert.Equal(t, "M::S", prog.Env.MemoryName(invs[0].Mem[0]))
}
