package ir

import "fmt"

// ExpData is one expression node. It is a closed set of variants; the
// children of a node are Exp handles into the same Arena.
type ExpData interface {
	NodeID() NodeID
	isExpData()
}

// Invalid marks an expression that failed to elaborate. Consumers that must
// interpret an expression may treat it as an invariant violation.
type Invalid struct {
	ID NodeID
}

// ValueExp is a constant.
type ValueExp struct {
	ID    NodeID
	Value Value
}

// LocalVar references a variable bound by a lambda, quantifier or block.
type LocalVar struct {
	ID   NodeID
	Name Symbol
}

// Temporary references a function temporary by index.
type Temporary struct {
	ID    NodeID
	Index TempIndex
}

// Call applies an operation to arguments.
type Call struct {
	ID   NodeID
	Oper Operation
	Args []Exp
}

// Invoke applies a computed function value to arguments.
type Invoke struct {
	ID     NodeID
	Target Exp
	Args   []Exp
}

// Lambda is an anonymous function.
type Lambda struct {
	ID     NodeID
	Params []LocalVarDecl
	Body   Exp
}

// Quant is a quantifier or choice over ranges. Where is the zero Exp when
// the quantifier has no filter.
type Quant struct {
	ID       NodeID
	Kind     QuantKind
	Ranges   []QuantRange
	Triggers [][]Exp
	Where    Exp
	Body     Exp
}

// Block binds local declarations over a body.
type Block struct {
	ID    NodeID
	Decls []LocalVarDecl
	Body  Exp
}

// IfElse is a conditional expression.
type IfElse struct {
	ID   NodeID
	Cond Exp
	Then Exp
	Else Exp
}

// LocalVarDecl declares a local name. Binding is the zero Exp when the
// declaration has no initializer.
type LocalVarDecl struct {
	ID      NodeID
	Name    Symbol
	Binding Exp
}

// QuantRange pairs a quantified variable with the domain it ranges over.
type QuantRange struct {
	Decl   LocalVarDecl
	Domain Exp
}

func (d Invalid) NodeID() NodeID   { return d.ID }
func (d ValueExp) NodeID() NodeID  { return d.ID }
func (d LocalVar) NodeID() NodeID  { return d.ID }
func (d Temporary) NodeID() NodeID { return d.ID }
func (d Call) NodeID() NodeID      { return d.ID }
func (d Invoke) NodeID() NodeID    { return d.ID }
func (d Lambda) NodeID() NodeID    { return d.ID }
func (d Quant) NodeID() NodeID     { return d.ID }
func (d Block) NodeID() NodeID     { return d.ID }
func (d IfElse) NodeID() NodeID    { return d.ID }

func (Invalid) isExpData()   {}
func (ValueExp) isExpData()  {}
func (LocalVar) isExpData()  {}
func (Temporary) isExpData() {}
func (Call) isExpData()      {}
func (Invoke) isExpData()    {}
func (Lambda) isExpData()    {}
func (Quant) isExpData()     {}
func (Block) isExpData()     {}
func (IfElse) isExpData()    {}

// Exp is a handle to an interned expression. Two handles from the same
// Arena are == exactly when the expressions are structurally identical.
// The zero Exp denotes an absent expression.
type Exp struct {
	arena *Arena
	idx   uint32
}

// IsZero reports whether e is the absent expression.
func (e Exp) IsZero() bool { return e.arena == nil }

// Arena returns the arena e was interned in.
func (e Exp) Arena() *Arena { return e.arena }

// Data returns the node behind the handle.
func (e Exp) Data() ExpData {
	if e.arena == nil {
		return nil
	}
	return e.arena.node(e.idx).data
}

// Hash returns the content hash of the expression.
func (e Exp) Hash() string {
	if e.arena == nil {
		return ""
	}
	return e.arena.node(e.idx).hash
}

// NodeID returns the id of the root node.
func (e Exp) NodeID() NodeID {
	if e.IsZero() {
		violate(CodeWrongVariant, "node_id on the absent expression")
	}
	return e.Data().NodeID()
}

// CallArgs returns the arguments of a Call. Any other node is an invariant
// violation.
func (e Exp) CallArgs() []Exp {
	call, ok := e.Data().(Call)
	if !ok {
		violate(CodeWrongVariant, "call_args on non-call expression %T", e.Data())
	}
	return call.Args
}

func (e Exp) String() string {
	if e.arena == nil {
		return "<none>"
	}
	return fmt.Sprintf("exp(%s)", e.Hash()[:12])
}

// Equal reports whether two expressions are structurally identical. Within
// one arena this is handle equality; across arenas the content hashes are
// compared first and confirmed by a structural walk.
func Equal(a, b Exp) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() && b.IsZero()
	}
	if a.arena == b.arena {
		return a.idx == b.idx
	}
	if a.Hash() != b.Hash() {
		return false
	}
	return equalData(a.Data(), b.Data())
}

func equalData(x, y ExpData) bool {
	switch a := x.(type) {
	case Invalid:
		b, ok := y.(Invalid)
		return ok && a == b
	case ValueExp:
		b, ok := y.(ValueExp)
		return ok && a.ID == b.ID && a.Value.Key() == b.Value.Key()
	case LocalVar:
		b, ok := y.(LocalVar)
		return ok && a == b
	case Temporary:
		b, ok := y.(Temporary)
		return ok && a == b
	case Call:
		b, ok := y.(Call)
		return ok && a.ID == b.ID && a.Oper.Equal(b.Oper) && equalExps(a.Args, b.Args)
	case Invoke:
		b, ok := y.(Invoke)
		return ok && a.ID == b.ID && Equal(a.Target, b.Target) && equalExps(a.Args, b.Args)
	case Lambda:
		b, ok := y.(Lambda)
		return ok && a.ID == b.ID && equalDecls(a.Params, b.Params) && Equal(a.Body, b.Body)
	case Quant:
		b, ok := y.(Quant)
		if !ok || a.ID != b.ID || a.Kind != b.Kind || len(a.Ranges) != len(b.Ranges) ||
			len(a.Triggers) != len(b.Triggers) {
			return false
		}
		for i := range a.Ranges {
			if !equalDecl(a.Ranges[i].Decl, b.Ranges[i].Decl) || !Equal(a.Ranges[i].Domain, b.Ranges[i].Domain) {
				return false
			}
		}
		for i := range a.Triggers {
			if !equalExps(a.Triggers[i], b.Triggers[i]) {
				return false
			}
		}
		return Equal(a.Where, b.Where) && Equal(a.Body, b.Body)
	case Block:
		b, ok := y.(Block)
		return ok && a.ID == b.ID && equalDecls(a.Decls, b.Decls) && Equal(a.Body, b.Body)
	case IfElse:
		b, ok := y.(IfElse)
		return ok && a.ID == b.ID && Equal(a.Cond, b.Cond) && Equal(a.Then, b.Then) && Equal(a.Else, b.Else)
	}
	return false
}

func equalExps(a, b []Exp) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalDecl(a, b LocalVarDecl) bool {
	return a.ID == b.ID && a.Name == b.Name && Equal(a.Binding, b.Binding)
}

func equalDecls(a, b []LocalVarDecl) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalDecl(a[i], b[i]) {
			return false
		}
	}
	return true
}
