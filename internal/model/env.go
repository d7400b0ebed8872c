package model

import (
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/specflow/internal/ir"
)

type nodeInfo struct {
	loc     ir.Loc
	ty      ir.Type
	inst    []ir.Type
	hasInst bool
}

// GlobalEnv holds the whole program.
//
// Declarations are added while a program is loaded and are read-only
// afterwards. The node tables stay writable for the lifetime of the
// environment since rewrites allocate fresh nodes; they are guarded by a
// lock so analyses of different functions may run in parallel.
type GlobalEnv struct {
	symbols *ir.SymbolPool
	arena   *ir.Arena
	clock   *NodeClock

	modules    []*ModuleData
	invariants []*ir.GlobalInvariantInfo

	mu    sync.RWMutex
	nodes map[ir.NodeID]nodeInfo
}

var _ ir.Env = (*GlobalEnv)(nil)

// NewGlobalEnv creates an empty environment.
func NewGlobalEnv() *GlobalEnv {
	return &GlobalEnv{
		symbols: ir.NewSymbolPool(),
		arena:   ir.NewArena(),
		clock:   NewNodeClock(),
		nodes:   make(map[ir.NodeID]nodeInfo),
	}
}

// Arena returns the arena the program's expressions are interned in.
func (e *GlobalEnv) Arena() *ir.Arena { return e.arena }

// SymbolPool implements ir.Env.
func (e *GlobalEnv) SymbolPool() *ir.SymbolPool { return e.symbols }

// Symbol interns name.
func (e *GlobalEnv) Symbol(name string) ir.Symbol { return e.symbols.Make(name) }

// AddModule declares a module. A nil address is taken as 0x0.
func (e *GlobalEnv) AddModule(addr *big.Int, name string, target bool) *ModuleData {
	if addr == nil {
		addr = new(big.Int)
	}
	m := &ModuleData{
		ID:       ir.ModuleID(len(e.modules)),
		Name:     ir.ModuleName{Addr: addr, Name: e.symbols.Make(name)},
		IsTarget: target,
		env:      e,
	}
	e.modules = append(e.modules, m)
	return m
}

// Module returns the module with the given id.
func (e *GlobalEnv) Module(mid ir.ModuleID) *ModuleData {
	if int(mid) >= len(e.modules) {
		ir.Violate(ir.CodeInvalidExpression, "unknown module %d", mid)
	}
	return e.modules[mid]
}

// Modules returns all modules in declaration order.
func (e *GlobalEnv) Modules() []*ModuleData { return e.modules }

// FindModule looks a module up by name.
func (e *GlobalEnv) FindModule(name string) (*ModuleData, bool) {
	for _, m := range e.modules {
		if m.NameString() == name {
			return m, true
		}
	}
	return nil, false
}

// Struct returns a struct declaration.
func (e *GlobalEnv) Struct(mid ir.ModuleID, sid ir.StructID) *StructData {
	m := e.Module(mid)
	if int(sid) >= len(m.Structs) {
		ir.Violate(ir.CodeInvalidExpression, "unknown struct %d in module %s", sid, m.NameString())
	}
	return m.Structs[sid]
}

// SpecFun returns a specification function declaration.
func (e *GlobalEnv) SpecFun(mid ir.ModuleID, fid ir.SpecFunID) *SpecFunData {
	m := e.Module(mid)
	if int(fid) >= len(m.SpecFuns) {
		ir.Violate(ir.CodeInvalidExpression, "unknown spec fun %d in module %s", fid, m.NameString())
	}
	return m.SpecFuns[fid]
}

// Function returns a function declaration.
func (e *GlobalEnv) Function(qid ir.QualifiedID[ir.FunID]) *FunDecl {
	m := e.Module(qid.Module)
	if int(qid.ID) >= len(m.Functions) {
		ir.Violate(ir.CodeInvalidExpression, "unknown function %d in module %s", qid.ID, m.NameString())
	}
	return m.Functions[qid.ID]
}

// Functions returns the ids of all functions in declaration order.
func (e *GlobalEnv) Functions() []ir.QualifiedID[ir.FunID] {
	var out []ir.QualifiedID[ir.FunID]
	for _, m := range e.modules {
		for _, f := range m.Functions {
			out = append(out, m.FunctionID(f.ID))
		}
	}
	return out
}

// AddGlobalInvariant registers a module level invariant and returns its id.
func (e *GlobalEnv) AddGlobalInvariant(inv *ir.GlobalInvariantInfo) ir.GlobalID {
	inv.ID = ir.GlobalID(len(e.invariants))
	e.invariants = append(e.invariants, inv)
	return inv.ID
}

// GlobalInvariants returns the registered global invariants.
func (e *GlobalEnv) GlobalInvariants() []*ir.GlobalInvariantInfo { return e.invariants }

// IsInvariantCheckingDelegated reports whether the callers of qid check
// global invariants on its behalf.
func (e *GlobalEnv) IsInvariantCheckingDelegated(qid ir.QualifiedID[ir.FunID]) bool {
	return e.Function(qid).DelegatesInvariants
}

// NodeType implements ir.Env.
func (e *GlobalEnv) NodeType(id ir.NodeID) ir.Type {
	e.mu.RLock()
	defer e.mu.RUnlock()
	info, ok := e.nodes[id]
	if !ok || info.ty == nil {
		return ir.ErrorType{}
	}
	return info.ty
}

// NodeInstantiation implements ir.Env.
func (e *GlobalEnv) NodeInstantiation(id ir.NodeID) ([]ir.Type, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	info, ok := e.nodes[id]
	if !ok || !info.hasInst {
		return nil, false
	}
	return info.inst, true
}

// NodeLoc implements ir.Env.
func (e *GlobalEnv) NodeLoc(id ir.NodeID) ir.Loc {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.nodes[id].loc
}

// NewNode implements ir.Env.
func (e *GlobalEnv) NewNode(loc ir.Loc, ty ir.Type) ir.NodeID {
	id := e.clock.Next()
	e.mu.Lock()
	e.nodes[id] = nodeInfo{loc: loc, ty: ty}
	e.mu.Unlock()
	return id
}

// NewInstNode allocates a node together with its instantiation.
func (e *GlobalEnv) NewInstNode(loc ir.Loc, ty ir.Type, inst ...ir.Type) ir.NodeID {
	id := e.NewNode(loc, ty)
	e.SetNodeInstantiation(id, inst)
	return id
}

// SetNodeInstantiation implements ir.Env.
func (e *GlobalEnv) SetNodeInstantiation(id ir.NodeID, inst []ir.Type) {
	e.mu.Lock()
	defer e.mu.Unlock()
	info := e.nodes[id]
	info.inst = slices.Clone(inst)
	info.hasInst = true
	e.nodes[id] = info
}

// NodeCount returns the number of allocated nodes.
func (e *GlobalEnv) NodeCount() int {
	return int(e.clock.Current())
}

// SpecFunUsedMemory implements ir.Env.
func (e *GlobalEnv) SpecFunUsedMemory(mid ir.ModuleID, fid ir.SpecFunID) []ir.QualifiedInstID[ir.StructID] {
	return e.SpecFun(mid, fid).UsedMemory
}

// StructName implements ir.Env.
func (e *GlobalEnv) StructName(mid ir.ModuleID, sid ir.StructID) string {
	return e.symbols.String(e.Struct(mid, sid).Name)
}

// QualifiedStructName implements ir.Env.
func (e *GlobalEnv) QualifiedStructName(mid ir.ModuleID, sid ir.StructID) string {
	return e.Module(mid).NameString() + "::" + e.StructName(mid, sid)
}

// SpecFunName implements ir.Env.
func (e *GlobalEnv) SpecFunName(mid ir.ModuleID, fid ir.SpecFunID) string {
	return e.Module(mid).NameString() + "::" + e.symbols.String(e.SpecFun(mid, fid).Name)
}

// FieldName implements ir.Env.
func (e *GlobalEnv) FieldName(mid ir.ModuleID, sid ir.StructID, fid ir.FieldID) string {
	s := e.Struct(mid, sid)
	if int(fid) >= len(s.Fields) {
		ir.Violate(ir.CodeInvalidExpression, "unknown field %d in struct %s", fid, e.QualifiedStructName(mid, sid))
	}
	return e.symbols.String(s.Fields[fid].Name)
}

// FunctionName returns a function name of the form M::f.
func (e *GlobalEnv) FunctionName(qid ir.QualifiedID[ir.FunID]) string {
	return e.Module(qid.Module).NameString() + "::" + e.symbols.String(e.Function(qid).Name)
}

// MemoryName renders a memory as M::S<u64>.
func (e *GlobalEnv) MemoryName(mem ir.QualifiedInstID[ir.StructID]) string {
	name := e.QualifiedStructName(mem.Module, mem.ID)
	if len(mem.Inst) == 0 {
		return name
	}
	return name + "<" + e.typeList(mem.Inst) + ">"
}

// TypeString implements ir.Env.
func (e *GlobalEnv) TypeString(t ir.Type) string {
	switch ty := t.(type) {
	case nil:
		return "?"
	case ir.StructType:
		name := e.QualifiedStructName(ty.Module, ty.Struct)
		if len(ty.Args) == 0 {
			return name
		}
		return name + "<" + e.typeList(ty.Args) + ">"
	case ir.VectorType:
		return "vector<" + e.TypeString(ty.Elem) + ">"
	case ir.ReferenceType:
		if ty.Mutable {
			return "&mut " + e.TypeString(ty.Inner)
		}
		return "&" + e.TypeString(ty.Inner)
	case ir.TupleType:
		return "(" + e.typeList(ty.Elems) + ")"
	default:
		return t.String()
	}
}

func (e *GlobalEnv) typeList(ts []ir.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = e.TypeString(t)
	}
	return strings.Join(parts, ", ")
}

// ComputeSpecFunUsage extends the declared memory of every specification
// function with the memory read by its body, including the memory of the
// specification functions the body calls.
//
// Passes repeat until no function's memory grows, so recursive functions
// and calls of functions declared later see the complete memory. A function
// that recurses with a growing instantiation (f<T> calling f<vector<T>>)
// has no finite memory; once a memory nests deeper than any chain of calls
// could produce, it is reported as a SpecFunUsageError.
func (e *GlobalEnv) ComputeSpecFunUsage() error {
	limit := e.specFunDepthLimit()
	for pass := 1; ; pass++ {
		changed := false
		for _, m := range e.modules {
			for _, f := range m.SpecFuns {
				if f.Body.IsZero() || !e.extendSpecFunUsage(f) {
					continue
				}
				changed = true
				for _, mem := range f.UsedMemory {
					if d := memoryDepth(mem); d > limit {
						return &SpecFunUsageError{Fun: e.SpecFunName(m.ID, f.ID), Memory: e.MemoryName(mem), Depth: d, Limit: limit}
					}
				}
			}
		}
		if !changed {
			slog.Debug("spec fun usage computed", "passes", pass, "depth_limit", limit)
			return nil
		}
	}
}

// SpecFunUsageError reports a specification function whose used memory
// does not converge.
type SpecFunUsageError struct {
	Fun    string
	Memory string
	Depth  int
	Limit  int
}

func (e *SpecFunUsageError) Error() string {
	return fmt.Sprintf("used memory of spec fun %s does not converge: %s nests %d deep, limit %d (recursion with a growing instantiation)",
		e.Fun, e.Memory, e.Depth, e.Limit)
}

// specFunDepthLimit bounds the nesting of any memory reachable without
// instantiation growth: the deepest memory written in a declaration or body
// plus the deepest call instantiation once per specification function.
func (e *GlobalEnv) specFunDepthLimit() int {
	memDepth, instDepth, funs := 0, 0, 0
	for _, m := range e.modules {
		for _, f := range m.SpecFuns {
			funs++
			for _, mem := range f.UsedMemory {
				memDepth = max(memDepth, memoryDepth(mem))
			}
			if f.Body.IsZero() {
				continue
			}
			f.Body.Visit(func(x ir.Exp) {
				call, ok := x.Data().(ir.Call)
				if !ok {
					return
				}
				inst, _ := e.NodeInstantiation(call.ID)
				switch call.Oper.Kind {
				case ir.OpExists, ir.OpGlobal:
					for _, t := range inst {
						memDepth = max(memDepth, ir.TypeDepth(t))
					}
				case ir.OpFunction:
					for _, t := range inst {
						instDepth = max(instDepth, ir.TypeDepth(t))
					}
				}
			})
		}
	}
	return memDepth + (funs+1)*instDepth
}

func memoryDepth(mem ir.QualifiedInstID[ir.StructID]) int {
	d := 1
	for _, t := range mem.Inst {
		d = max(d, 1+ir.TypeDepth(t))
	}
	return d
}

func (e *GlobalEnv) extendSpecFunUsage(f *SpecFunData) bool {
	seen := make(map[string]ir.QualifiedInstID[ir.StructID], len(f.UsedMemory))
	for _, mem := range f.UsedMemory {
		seen[mem.Key()] = mem
	}
	grew := false
	for _, use := range f.Body.UsedMemory(e) {
		if _, ok := seen[use.Memory.Key()]; !ok {
			seen[use.Memory.Key()] = use.Memory
			grew = true
		}
	}
	if !grew {
		return false
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	used := make([]ir.QualifiedInstID[ir.StructID], len(keys))
	for i, k := range keys {
		used[i] = seen[k]
	}
	f.UsedMemory = used
	return true
}

// Describe summarizes the environment for logs.
func (e *GlobalEnv) Describe() string {
	funs := 0
	for _, m := range e.modules {
		funs += len(m.Functions)
	}
	return fmt.Sprintf("%d modules, %d functions, %d nodes", len(e.modules), funs, e.NodeCount())
}
