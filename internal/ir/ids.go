package ir

import (
	"fmt"
	"strings"
	"sync"
)

// NodeID identifies an expression node in the Env's attribute tables.
type NodeID uint32

// ModuleID indexes a module in the program.
type ModuleID uint32

// StructID indexes a struct within its module.
type StructID uint32

// FieldID indexes a field within its struct.
type FieldID uint32

// FunID indexes a bytecode function within its module.
type FunID uint32

// SpecFunID indexes a specification function within its module.
type SpecFunID uint32

// GlobalID identifies a global entity such as a memory state label.
type GlobalID uint32

// MemoryLabel names a memory state snapshot (for example the pre-state).
type MemoryLabel = GlobalID

// TempIndex is the index of a temporary in a function's local slots.
type TempIndex = int

// CodeOffset is an instruction offset into a function's bytecode.
type CodeOffset = uint16

func (id NodeID) String() string   { return fmt.Sprintf("#%d", uint32(id)) }
func (id GlobalID) String() string { return fmt.Sprintf("@%d", uint32(id)) }

// IDKind is the constraint satisfied by the integer identifiers that can be
// qualified by a module.
type IDKind interface {
	~uint32
}

// QualifiedID pairs a module with an entity id inside it.
type QualifiedID[T IDKind] struct {
	Module ModuleID
	ID     T
}

// Qualify builds a QualifiedID.
func Qualify[T IDKind](mid ModuleID, id T) QualifiedID[T] {
	return QualifiedID[T]{Module: mid, ID: id}
}

// Key returns a string that orders ids by (module, id).
func (q QualifiedID[T]) Key() string {
	return fmt.Sprintf("%08x.%08x", uint32(q.Module), uint32(q.ID))
}

func (q QualifiedID[T]) String() string {
	return fmt.Sprintf("%d::%d", q.Module, uint32(q.ID))
}

// Less orders qualified ids by module then id.
func (q QualifiedID[T]) Less(o QualifiedID[T]) bool {
	if q.Module != o.Module {
		return q.Module < o.Module
	}
	return q.ID < o.ID
}

// Instantiate attaches type arguments.
func (q QualifiedID[T]) Instantiate(inst []Type) QualifiedInstID[T] {
	return QualifiedInstID[T]{Module: q.Module, ID: q.ID, Inst: inst}
}

// QualifiedInstID is a QualifiedID with type arguments.
type QualifiedInstID[T IDKind] struct {
	Module ModuleID
	ID     T
	Inst   []Type
}

// Qualified erases the instantiation.
func (q QualifiedInstID[T]) Qualified() QualifiedID[T] {
	return QualifiedID[T]{Module: q.Module, ID: q.ID}
}

// Instantiate substitutes type parameters in the instantiation.
func (q QualifiedInstID[T]) Instantiate(targs []Type) QualifiedInstID[T] {
	if len(targs) == 0 || len(q.Inst) == 0 {
		return q
	}
	return QualifiedInstID[T]{Module: q.Module, ID: q.ID, Inst: InstantiateVec(q.Inst, targs)}
}

// Key is the canonical form used for set membership and ordering.
func (q QualifiedInstID[T]) Key() string {
	var b strings.Builder
	b.WriteString(q.Qualified().Key())
	if len(q.Inst) > 0 {
		b.WriteByte('<')
		for i, t := range q.Inst {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(t.Key())
		}
		b.WriteByte('>')
	}
	return b.String()
}

func (q QualifiedInstID[T]) String() string {
	if len(q.Inst) == 0 {
		return q.Qualified().String()
	}
	parts := make([]string, len(q.Inst))
	for i, t := range q.Inst {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s<%s>", q.Qualified(), strings.Join(parts, ", "))
}

// Equal compares module, id and instantiation.
func (q QualifiedInstID[T]) Equal(o QualifiedInstID[T]) bool {
	return q.Key() == o.Key()
}

// Symbol is an interned name. The zero Symbol is the empty name and never
// stands for a declared one.
type Symbol uint32

// NoSymbol is the absent name.
const NoSymbol Symbol = 0

// SymbolPool interns names. It is safe for concurrent use.
type SymbolPool struct {
	mu    sync.RWMutex
	names []string
	index map[string]Symbol
}

// NewSymbolPool returns a pool holding only the empty name.
func NewSymbolPool() *SymbolPool {
	return &SymbolPool{names: []string{""}, index: map[string]Symbol{"": NoSymbol}}
}

// Make interns name and returns its symbol.
func (p *SymbolPool) Make(name string) Symbol {
	p.mu.RLock()
	sym, ok := p.index[name]
	p.mu.RUnlock()
	if ok {
		return sym
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if sym, ok := p.index[name]; ok {
		return sym
	}
	sym = Symbol(len(p.names))
	p.names = append(p.names, name)
	p.index[name] = sym
	return sym
}

// String returns the name behind sym.
func (p *SymbolPool) String(sym Symbol) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(sym) >= len(p.names) {
		return fmt.Sprintf("<sym %d>", uint32(sym))
	}
	return p.names[sym]
}

// TypedSymbol is a free variable together with its type.
type TypedSymbol struct {
	Name Symbol
	Type Type
}

// Loc is a source location used for diagnostics.
type Loc struct {
	File   string
	Line   int
	Column int
}

func (l Loc) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}
