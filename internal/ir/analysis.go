package ir

import (
	"fmt"
	"slices"
	"strings"
)

// GhostMemoryPrefix marks structs that model ghost memory.
const GhostMemoryPrefix = "Ghost$"

// FreeVars returns the local variables that occur free in e together with
// their types, ordered by first occurrence.
//
// Binders are tracked as a multiset: a name bound twice on the current path
// stays shadowed until both binders have been left.
func (e Exp) FreeVars(env Env) []TypedSymbol {
	var vars []TypedSymbol
	seen := make(map[Symbol]bool)
	shadowed := make(map[Symbol]int)

	e.VisitPrePost(func(post bool, x Exp) {
		data := x.Data()
		names := boundNames(data)
		if !post {
			for _, name := range names {
				shadowed[name]++
			}
			return
		}
		for _, name := range names {
			if shadowed[name] > 0 {
				shadowed[name]--
			}
		}
		if lv, ok := data.(LocalVar); ok && shadowed[lv.Name] == 0 && !seen[lv.Name] {
			seen[lv.Name] = true
			vars = append(vars, TypedSymbol{Name: lv.Name, Type: env.NodeType(lv.ID)})
		}
	})
	return vars
}

// MemoryUse is a global memory access with the state label it reads, if any.
type MemoryUse struct {
	Memory QualifiedInstID[StructID]
	Label  *MemoryLabel
}

// Key orders memory uses by memory, then unlabelled before labelled.
func (m MemoryUse) Key() string {
	if m.Label == nil {
		return m.Memory.Key()
	}
	return fmt.Sprintf("%s@%08x", m.Memory.Key(), uint32(*m.Label))
}

// UsedMemory returns the set of global memory e reads, ordered by Key.
//
// exists and global contribute the struct of their instantiation. Calls of
// specification functions contribute the callee's used memory instantiated
// with the call's type arguments; when the call carries labels, the i-th
// memory is paired with the i-th label.
func (e Exp) UsedMemory(env Env) []MemoryUse {
	uses := make(map[string]MemoryUse)
	e.Visit(func(x Exp) {
		call, ok := x.Data().(Call)
		if !ok {
			return
		}
		switch call.Oper.Kind {
		case OpExists, OpGlobal:
			inst, _ := env.NodeInstantiation(call.ID)
			if len(inst) == 0 {
				violate(CodeMissingInstantiation, "%s at node %s has no instantiation", call.Oper.Kind, call.ID)
			}
			use := MemoryUse{Memory: RequireStruct(inst[0]).QualifiedInstID(), Label: call.Oper.Label}
			uses[use.Key()] = use
		case OpFunction:
			inst, _ := env.NodeInstantiation(call.ID)
			for i, mem := range env.SpecFunUsedMemory(call.Oper.Module, call.Oper.Fun) {
				use := MemoryUse{Memory: mem.Instantiate(inst)}
				if call.Oper.Labels != nil {
					if i >= len(call.Oper.Labels) {
						violate(CodeInvalidExpression, "call at node %s has %d labels for %d memories",
							call.ID, len(call.Oper.Labels), i+1)
					}
					use.Label = Label(call.Oper.Labels[i])
				}
				uses[use.Key()] = use
			}
		}
	})

	keys := make([]string, 0, len(uses))
	for k := range uses {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]MemoryUse, len(keys))
	for i, k := range keys {
		out[i] = uses[k]
	}
	return out
}

// TypedTemp is a temporary together with its type.
type TypedTemp struct {
	Index TempIndex
	Type  Type
}

// Temporaries returns the temporaries used in e, ordered by first
// occurrence.
func (e Exp) Temporaries(env Env) []TypedTemp {
	var temps []TypedTemp
	seen := make(map[TempIndex]bool)
	e.Visit(func(x Exp) {
		if t, ok := x.Data().(Temporary); ok && !seen[t.Index] {
			seen[t.Index] = true
			temps = append(temps, TypedTemp{Index: t.Index, Type: env.NodeType(t.ID)})
		}
	})
	return temps
}

// IsPure reports whether e depends neither on global memory nor on mutable
// references. Reading a &mut temporary, exists or global, and calling a
// specification function with non-empty used memory all make e impure.
func (e Exp) IsPure(env Env) bool {
	return !e.Any(func(x Exp) bool {
		switch d := x.Data().(type) {
		case Temporary:
			return IsMutableReference(env.NodeType(d.ID))
		case Call:
			switch d.Oper.Kind {
			case OpExists, OpGlobal:
				return true
			case OpFunction:
				return len(env.SpecFunUsedMemory(d.Oper.Module, d.Oper.Fun)) > 0
			}
		}
		return false
	})
}

// UsesMemory folds Operation.UsesMemory over every call in e with logical
// and.
func (e Exp) UsesMemory(checkPure func(mid ModuleID, fid SpecFunID) bool) bool {
	result := true
	e.Visit(func(x Exp) {
		if call, ok := x.Data().(Call); ok {
			result = result && call.Oper.UsesMemory(checkPure)
		}
	})
	return result
}

// ModuleUsage adds the modules referenced by function calls, packs, selects
// and field updates in e to usage.
func (e Exp) ModuleUsage(usage map[ModuleID]bool) {
	e.Visit(func(x Exp) {
		if call, ok := x.Data().(Call); ok {
			switch call.Oper.Kind {
			case OpFunction, OpPack, OpSelect, OpUpdateField:
				usage[call.Oper.Module] = true
			}
		}
	})
}

// GhostAccess is the result of ExtractGhostMemAccess.
type GhostAccess struct {
	Memory  QualifiedInstID[StructID]
	Field   FieldID
	Address Exp
}

// ExtractGhostMemAccess recognizes select(global<G>(addr)).f where G is a
// ghost struct and the global read carries no label.
func (e Exp) ExtractGhostMemAccess(env Env) (GhostAccess, bool) {
	sel, ok := e.Data().(Call)
	if !ok || sel.Oper.Kind != OpSelect || len(sel.Args) == 0 {
		return GhostAccess{}, false
	}
	global, ok := sel.Args[0].Data().(Call)
	if !ok || global.Oper.Kind != OpGlobal || global.Oper.Label != nil || len(global.Args) == 0 {
		return GhostAccess{}, false
	}
	st := RequireStruct(env.NodeType(global.ID))
	if !strings.HasPrefix(env.StructName(st.Module, st.Struct), GhostMemoryPrefix) {
		return GhostAccess{}, false
	}
	return GhostAccess{
		Memory:  st.QualifiedInstID(),
		Field:   sel.Oper.Field,
		Address: global.Args[0],
	}, true
}

// RequireValid panics with an InvariantViolation if e contains an Invalid
// node.
func (e Exp) RequireValid() {
	e.Visit(func(x Exp) {
		if inv, ok := x.Data().(Invalid); ok {
			violate(CodeInvalidExpression, "invalid expression at node %s", inv.ID)
		}
	})
}
