package usage

import (
	"github.com/roach88/specflow/internal/bytecode"
	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/model"
	"github.com/roach88/specflow/internal/pipeline"
	"github.com/roach88/specflow/internal/summary"
)

// analysis is the forward transfer function of the usage analysis.
type analysis struct {
	env   *model.GlobalEnv
	cache *summary.Cache
}

var _ summary.Analysis[*UsageState] = (*analysis)(nil)

func (a *analysis) Backward() bool { return false }

func (a *analysis) Execute(state *UsageState, instr bytecode.Bytecode, offset ir.CodeOffset) {
	switch b := instr.(type) {
	case bytecode.Call:
		a.executeCall(state, b.Oper)
	case bytecode.Prop:
		switch b.Kind {
		case bytecode.Assume:
			state.Add(Assumed, Direct, usedMemory(a.env, b.Exp)...)
		case bytecode.Assert:
			state.Add(Asserted, Direct, usedMemory(a.env, b.Exp)...)
		case bytecode.Modifies:
			ir.Violate(ir.CodeUnexpectedModifies,
				"modifies property at offset %d: modifies is not expected in a function body", offset)
		}
	}
}

func (a *analysis) executeCall(state *UsageState, oper bytecode.Operation) {
	switch oper.Kind {
	case bytecode.OpFunction, bytecode.OpOpaqueCallBegin, bytecode.OpOpaqueCallEnd:
		callee := oper.Callee()
		s, ok := summary.Get[*UsageState](a.cache, callee, pipeline.Baseline)
		if !ok {
			return
		}
		// Memory of callees whose invariant checks are delegated must look
		// like the caller's own, so invariants are instrumented at the caller.
		state.SubsumeCallee(s, oper.Inst, a.env.IsInvariantCheckingDelegated(callee))
	case bytecode.OpMoveTo, bytecode.OpMoveFrom, bytecode.OpBorrowGlobal:
		state.Add(Modified, Direct, oper.Memory())
	case bytecode.OpWriteBack:
		if oper.Node.Kind == bytecode.GlobalRoot {
			state.Add(Modified, Direct, oper.Node.Memory)
		}
	case bytecode.OpExists, bytecode.OpGetGlobal:
		state.Add(Accessed, Direct, oper.Memory())
	}
}

func (a *analysis) ToSummary(state *UsageState, _ pipeline.FunID, _ *pipeline.FunctionData) *UsageState {
	return state
}

func usedMemory(env ir.Env, exps ...ir.Exp) []Memory {
	var out []Memory
	for _, e := range exps {
		if e.IsZero() {
			continue
		}
		e.RequireValid()
		for _, use := range e.UsedMemory(env) {
			out = append(out, use.Memory)
		}
	}
	return out
}

// ComputeSpecUsage adds the memory of a declared specification to state.
// Postconditions, aborts conditions and emits clauses are asserted, every
// other condition is assumed. The ghost memory an update condition writes
// is also modified.
func ComputeSpecUsage(env ir.Env, spec *ir.Spec, state *UsageState) {
	if spec == nil {
		return
	}
	for i := range spec.Conditions {
		cond := &spec.Conditions[i]
		mems := usedMemory(env, cond.AllExps()...)
		switch cond.Kind.Tag {
		case ir.Ensures, ir.AbortsIf, ir.Emits:
			state.Add(Asserted, Direct, mems...)
		default:
			state.Add(Assumed, Direct, mems...)
		}

		if cond.Kind.Tag == ir.Update {
			if len(cond.AdditionalExps) == 0 {
				ir.Violate(ir.CodeInvalidExpression, "update condition at %s has no target", cond.Loc)
			}
			if access, ok := cond.AdditionalExps[0].ExtractGhostMemAccess(env); ok {
				state.Add(Modified, Direct, access.Memory)
			}
		}
	}
}
