// Package bytecode defines the instruction shapes that function-level
// analyses interpret, and the control flow graph built from them.
//
// Only the parts of the stackless bytecode that analyses match on are
// modelled: calls with their operation tag, control flow, and specification
// properties. Everything else is an inert operation.
package bytecode

import (
	"fmt"
	"strings"

	"github.com/roach88/specflow/internal/ir"
)

// LabelID names a jump target.
type LabelID uint16

// Bytecode is one instruction.
type Bytecode interface {
	String() string
	isBytecode()
}

// Assign copies a temporary.
type Assign struct {
	Dest ir.TempIndex
	Src  ir.TempIndex
}

// Call applies an operation.
type Call struct {
	Dests []ir.TempIndex
	Oper  Operation
	Srcs  []ir.TempIndex
}

// Ret returns from the function.
type Ret struct {
	Srcs []ir.TempIndex
}

// Branch jumps to Then if Cond is true, to Else otherwise.
type Branch struct {
	Then LabelID
	Else LabelID
	Cond ir.TempIndex
}

// Jump transfers control unconditionally.
type Jump struct {
	Target LabelID
}

// Label marks a jump target.
type Label struct {
	Label LabelID
}

// Abort terminates execution with an error code.
type Abort struct {
	Src ir.TempIndex
}

// Nop does nothing.
type Nop struct{}

// PropKind distinguishes specification properties in code.
type PropKind uint8

const (
	Assert PropKind = iota
	Assume
	Modifies
)

func (k PropKind) String() string {
	switch k {
	case Assert:
		return "assert"
	case Assume:
		return "assume"
	case Modifies:
		return "modifies"
	}
	return fmt.Sprintf("prop(%d)", uint8(k))
}

// Prop is a specification property checked or assumed at this point.
type Prop struct {
	Kind PropKind
	Exp  ir.Exp
}

// SaveMem snapshots memory under a label.
type SaveMem struct {
	Label  ir.MemoryLabel
	Memory ir.QualifiedInstID[ir.StructID]
}

// SpecBlock marks the position of an inline specification block.
type SpecBlock struct {
	Offset ir.CodeOffset
}

func (Assign) isBytecode()    {}
func (Call) isBytecode()      {}
func (Ret) isBytecode()       {}
func (Branch) isBytecode()    {}
func (Jump) isBytecode()      {}
func (Label) isBytecode()     {}
func (Abort) isBytecode()     {}
func (Nop) isBytecode()       {}
func (Prop) isBytecode()      {}
func (SaveMem) isBytecode()   {}
func (SpecBlock) isBytecode() {}

func (b Assign) String() string { return fmt.Sprintf("$t%d := $t%d", b.Dest, b.Src) }

func (b Call) String() string {
	call := fmt.Sprintf("%s(%s)", b.Oper, temps(b.Srcs))
	if len(b.Dests) == 0 {
		return call
	}
	return temps(b.Dests) + " := " + call
}

func (b Ret) String() string {
	if len(b.Srcs) == 0 {
		return "return"
	}
	return "return " + temps(b.Srcs)
}

func (b Branch) String() string {
	return fmt.Sprintf("if ($t%d) goto L%d else goto L%d", b.Cond, b.Then, b.Else)
}

func (b Jump) String() string      { return fmt.Sprintf("goto L%d", b.Target) }
func (b Label) String() string     { return fmt.Sprintf("label L%d", b.Label) }
func (b Abort) String() string     { return fmt.Sprintf("abort($t%d)", b.Src) }
func (Nop) String() string         { return "nop" }
func (b Prop) String() string      { return fmt.Sprintf("%s %s", b.Kind, b.Exp) }
func (b SaveMem) String() string   { return fmt.Sprintf("save_mem(%s, %s)", b.Label, b.Memory) }
func (b SpecBlock) String() string { return fmt.Sprintf("spec_block(%d)", b.Offset) }

func temps(ts []ir.TempIndex) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = fmt.Sprintf("$t%d", t)
	}
	return strings.Join(parts, ", ")
}

// IsBranching reports whether control does not fall through to the next
// instruction.
func IsBranching(b Bytecode) bool {
	switch b.(type) {
	case Branch, Jump, Ret, Abort:
		return true
	}
	return false
}
