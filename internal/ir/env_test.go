package ir

import (
	"fmt"
	"sync"
)

// testEnv is a minimal Env for tests in this package.
type testEnv struct {
	mu        sync.Mutex
	pool      *SymbolPool
	types     map[NodeID]Type
	inst      map[NodeID][]Type
	next      NodeID
	structs   map[StructID]string
	specFuns  map[SpecFunID][]QualifiedInstID[StructID]
	arena     *Arena
	newNodeCt int
}

func newTestEnv() *testEnv {
	return &testEnv{
		pool:     NewSymbolPool(),
		types:    make(map[NodeID]Type),
		inst:     make(map[NodeID][]Type),
		structs:  make(map[StructID]string),
		specFuns: make(map[SpecFunID][]QualifiedInstID[StructID]),
		arena:    NewArena(),
	}
}

func (e *testEnv) SymbolPool() *SymbolPool { return e.pool }

func (e *testEnv) NodeType(id NodeID) Type {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.types[id]; ok {
		return t
	}
	return ErrorType{}
}

func (e *testEnv) NodeInstantiation(id NodeID) ([]Type, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.inst[id]
	return inst, ok
}

func (e *testEnv) NodeLoc(NodeID) Loc { return Loc{File: "test.move", Line: 1, Column: 1} }

func (e *testEnv) NewNode(_ Loc, ty Type) NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.newNodeCt++
	e.types[e.next] = ty
	return e.next
}

func (e *testEnv) SetNodeInstantiation(id NodeID, inst []Type) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inst[id] = inst
}

func (e *testEnv) SpecFunUsedMemory(_ ModuleID, fid SpecFunID) []QualifiedInstID[StructID] {
	return e.specFuns[fid]
}

func (e *testEnv) StructName(_ ModuleID, sid StructID) string { return e.structs[sid] }

func (e *testEnv) QualifiedStructName(_ ModuleID, sid StructID) string {
	return "M::" + e.structs[sid]
}

func (e *testEnv) SpecFunName(_ ModuleID, fid SpecFunID) string { return fmt.Sprintf("M::f%d", fid) }

func (e *testEnv) FieldName(_ ModuleID, _ StructID, fid FieldID) string {
	return fmt.Sprintf("f%d", fid)
}

func (e *testEnv) TypeString(t Type) string { return t.String() }

// node allocates a node of type ty.
func (e *testEnv) node(ty Type) NodeID { return e.NewNode(Loc{}, ty) }

// instNode allocates a node of type ty with instantiation inst.
func (e *testEnv) instNode(ty Type, inst ...Type) NodeID {
	id := e.node(ty)
	e.SetNodeInstantiation(id, inst)
	return id
}

func (e *testEnv) local(name string, ty Type) Exp {
	return e.arena.LocalVar(e.node(ty), e.pool.Make(name))
}

func (e *testEnv) num(n int64) Exp {
	return e.arena.Value(e.node(NumType), Number(n))
}

func (e *testEnv) decl(name string, ty Type, binding Exp) LocalVarDecl {
	return LocalVarDecl{ID: e.node(ty), Name: e.pool.Make(name), Binding: binding}
}

func (e *testEnv) structType(sid StructID, name string, args ...Type) StructType {
	e.structs[sid] = name
	return StructType{Module: 0, Struct: sid, Args: args}
}

// exists builds exists<S>(addr).
func (e *testEnv) exists(st StructType, label *MemoryLabel) Exp {
	addr := e.arena.Value(e.node(AddressType), Address(MaxAddress))
	return e.arena.Call(e.instNode(BoolType, st), ExistsOp(label), addr)
}

// global builds global<S>(addr).
func (e *testEnv) global(st StructType, label *MemoryLabel) Exp {
	addr := e.arena.Value(e.node(AddressType), Address(MaxAddress))
	return e.arena.Call(e.instNode(st, st), GlobalOp(label), addr)
}
