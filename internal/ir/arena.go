package ir

import (
	"slices"
	"sync"
)

// Arena hash-conses expression nodes. Interning a node whose content hash is
// already present returns the existing handle, so identical trees share
// storage and compare equal with ==. An Arena is safe for concurrent use.
type Arena struct {
	mu     sync.RWMutex
	nodes  []arenaNode
	byHash map[string]uint32
}

type arenaNode struct {
	data ExpData
	hash string
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{byHash: make(map[string]uint32)}
}

// Len returns the number of distinct nodes interned so far.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.nodes)
}

func (a *Arena) node(idx uint32) arenaNode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nodes[idx]
}

// Intern returns the handle for data, adding it if it is new. Children that
// belong to another arena are imported first.
func (a *Arena) Intern(data ExpData) Exp {
	data = a.adopt(data)
	hash := expHash(data)

	a.mu.RLock()
	idx, ok := a.byHash[hash]
	a.mu.RUnlock()
	if ok {
		return Exp{arena: a, idx: idx}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if idx, ok := a.byHash[hash]; ok {
		return Exp{arena: a, idx: idx}
	}
	idx = uint32(len(a.nodes))
	a.nodes = append(a.nodes, arenaNode{data: data, hash: hash})
	a.byHash[hash] = idx
	return Exp{arena: a, idx: idx}
}

// Import returns the handle for e in this arena.
func (a *Arena) Import(e Exp) Exp {
	if e.IsZero() || e.arena == a {
		return e
	}
	return a.Intern(e.Data())
}

// adopt copies the slices of data, so later mutation by the caller cannot
// change an interned node, and imports foreign children.
func (a *Arena) adopt(data ExpData) ExpData {
	switch d := data.(type) {
	case Call:
		d.Args = a.importAll(d.Args)
		return d
	case Invoke:
		d.Target = a.Import(d.Target)
		d.Args = a.importAll(d.Args)
		return d
	case Lambda:
		d.Params = a.importDecls(d.Params)
		d.Body = a.Import(d.Body)
		return d
	case Quant:
		ranges := make([]QuantRange, len(d.Ranges))
		for i, r := range d.Ranges {
			ranges[i] = QuantRange{Decl: a.importDecl(r.Decl), Domain: a.Import(r.Domain)}
		}
		d.Ranges = ranges
		triggers := make([][]Exp, len(d.Triggers))
		for i, group := range d.Triggers {
			triggers[i] = a.importAll(group)
		}
		d.Triggers = triggers
		d.Where = a.Import(d.Where)
		d.Body = a.Import(d.Body)
		return d
	case Block:
		d.Decls = a.importDecls(d.Decls)
		d.Body = a.Import(d.Body)
		return d
	case IfElse:
		d.Cond = a.Import(d.Cond)
		d.Then = a.Import(d.Then)
		d.Else = a.Import(d.Else)
		return d
	default:
		return data
	}
}

func (a *Arena) importAll(exps []Exp) []Exp {
	out := slices.Clone(exps)
	for i, e := range out {
		out[i] = a.Import(e)
	}
	return out
}

func (a *Arena) importDecl(d LocalVarDecl) LocalVarDecl {
	d.Binding = a.Import(d.Binding)
	return d
}

func (a *Arena) importDecls(decls []LocalVarDecl) []LocalVarDecl {
	out := slices.Clone(decls)
	for i, d := range out {
		out[i] = a.importDecl(d)
	}
	return out
}

// Invalid interns an Invalid node.
func (a *Arena) Invalid(id NodeID) Exp { return a.Intern(Invalid{ID: id}) }

// Value interns a constant.
func (a *Arena) Value(id NodeID, v Value) Exp { return a.Intern(ValueExp{ID: id, Value: v}) }

// LocalVar interns a local variable reference.
func (a *Arena) LocalVar(id NodeID, name Symbol) Exp {
	return a.Intern(LocalVar{ID: id, Name: name})
}

// Temp interns a temporary reference.
func (a *Arena) Temp(id NodeID, idx TempIndex) Exp {
	return a.Intern(Temporary{ID: id, Index: idx})
}

// Call interns an operation application.
func (a *Arena) Call(id NodeID, oper Operation, args ...Exp) Exp {
	return a.Intern(Call{ID: id, Oper: oper, Args: args})
}

// Invoke interns a function value application.
func (a *Arena) Invoke(id NodeID, target Exp, args ...Exp) Exp {
	return a.Intern(Invoke{ID: id, Target: target, Args: args})
}

// Lambda interns an anonymous function.
func (a *Arena) Lambda(id NodeID, params []LocalVarDecl, body Exp) Exp {
	return a.Intern(Lambda{ID: id, Params: params, Body: body})
}

// Quant interns a quantifier. Pass the zero Exp for where when there is no
// filter.
func (a *Arena) Quant(id NodeID, kind QuantKind, ranges []QuantRange, triggers [][]Exp, where, body Exp) Exp {
	return a.Intern(Quant{ID: id, Kind: kind, Ranges: ranges, Triggers: triggers, Where: where, Body: body})
}

// Block interns a let block.
func (a *Arena) Block(id NodeID, decls []LocalVarDecl, body Exp) Exp {
	return a.Intern(Block{ID: id, Decls: decls, Body: body})
}

// IfElse interns a conditional.
func (a *Arena) IfElse(id NodeID, cond, then, els Exp) Exp {
	return a.Intern(IfElse{ID: id, Cond: cond, Then: then, Else: els})
}
