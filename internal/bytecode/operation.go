package bytecode

import (
	"fmt"
	"strings"

	"github.com/roach88/specflow/internal/ir"
)

// OpKind tags the operation of a Call instruction.
type OpKind uint8

const (
	// Calls of other functions.
	OpFunction OpKind = iota
	OpOpaqueCallBegin
	OpOpaqueCallEnd

	// Global memory.
	OpMoveTo
	OpMoveFrom
	OpBorrowGlobal
	OpExists
	OpGetGlobal
	OpWriteBack

	// Operations that do not touch global memory.
	OpPack
	OpUnpack
	OpBorrowLoc
	OpBorrowField
	OpReadRef
	OpWriteRef
	OpFreezeRef
	OpDestroy
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpGt
	OpLe
	OpGe
	OpEq
	OpNeq
	OpAnd
	OpOr
	OpNot

	opKindCount
)

var opNames = [...]string{
	OpFunction:        "call",
	OpOpaqueCallBegin: "opaque_begin",
	OpOpaqueCallEnd:   "opaque_end",
	OpMoveTo:          "move_to",
	OpMoveFrom:        "move_from",
	OpBorrowGlobal:    "borrow_global",
	OpExists:          "exists",
	OpGetGlobal:       "get_global",
	OpWriteBack:       "write_back",
	OpPack:            "pack",
	OpUnpack:          "unpack",
	OpBorrowLoc:       "borrow_local",
	OpBorrowField:     "borrow_field",
	OpReadRef:         "read_ref",
	OpWriteRef:        "write_ref",
	OpFreezeRef:       "freeze_ref",
	OpDestroy:         "destroy",
	OpAdd:             "add",
	OpSub:             "sub",
	OpMul:             "mul",
	OpDiv:             "div",
	OpMod:             "mod",
	OpLt:              "lt",
	OpGt:              "gt",
	OpLe:              "le",
	OpGe:              "ge",
	OpEq:              "eq",
	OpNeq:             "neq",
	OpAnd:             "and",
	OpOr:              "or",
	OpNot:             "not",
}

func (k OpKind) String() string {
	if k < opKindCount {
		return opNames[k]
	}
	return fmt.Sprintf("op(%d)", uint8(k))
}

// ParseOpKind maps an operation name back to its kind.
func ParseOpKind(name string) (OpKind, bool) {
	for i, n := range opNames {
		if n == name {
			return OpKind(i), true
		}
	}
	return 0, false
}

// BorrowNodeKind distinguishes the roots of a borrow.
type BorrowNodeKind uint8

const (
	GlobalRoot BorrowNodeKind = iota
	LocalRoot
	Reference
)

// BorrowNode identifies what a reference was borrowed from. Memory is set
// for GlobalRoot, Temp otherwise.
type BorrowNode struct {
	Kind   BorrowNodeKind
	Memory ir.QualifiedInstID[ir.StructID]
	Temp   ir.TempIndex
}

func (n BorrowNode) String() string {
	switch n.Kind {
	case GlobalRoot:
		return fmt.Sprintf("global<%s>", n.Memory)
	case LocalRoot:
		return fmt.Sprintf("local($t%d)", n.Temp)
	default:
		return fmt.Sprintf("ref($t%d)", n.Temp)
	}
}

// Operation is the operator of a Call instruction. Module with Fun or
// Struct, and Inst, are set for calls and memory operations; Node is set
// for OpWriteBack.
type Operation struct {
	Kind   OpKind
	Module ir.ModuleID
	Fun    ir.FunID
	Struct ir.StructID
	Field  ir.FieldID
	Inst   []ir.Type
	Node   BorrowNode
}

// FunctionCall builds a call of another function.
func FunctionCall(kind OpKind, mid ir.ModuleID, fid ir.FunID, inst []ir.Type) Operation {
	return Operation{Kind: kind, Module: mid, Fun: fid, Inst: inst}
}

// MemoryOp builds an operation on global memory of a struct.
func MemoryOp(kind OpKind, mid ir.ModuleID, sid ir.StructID, inst []ir.Type) Operation {
	return Operation{Kind: kind, Module: mid, Struct: sid, Inst: inst}
}

// WriteBack builds a write back to a borrow root.
func WriteBack(node BorrowNode) Operation {
	return Operation{Kind: OpWriteBack, Node: node}
}

// Simple builds an operation without parameters.
func Simple(kind OpKind) Operation { return Operation{Kind: kind} }

// IsCall reports whether the operation calls another function.
func (o Operation) IsCall() bool {
	switch o.Kind {
	case OpFunction, OpOpaqueCallBegin, OpOpaqueCallEnd:
		return true
	}
	return false
}

// Callee returns the function called.
func (o Operation) Callee() ir.QualifiedID[ir.FunID] {
	return ir.Qualify(o.Module, o.Fun)
}

// Memory returns the memory a memory operation works on.
func (o Operation) Memory() ir.QualifiedInstID[ir.StructID] {
	return ir.QualifiedInstID[ir.StructID]{Module: o.Module, ID: o.Struct, Inst: o.Inst}
}

func (o Operation) String() string {
	var b strings.Builder
	b.WriteString(o.Kind.String())
	switch {
	case o.IsCall():
		fmt.Fprintf(&b, " %s", o.Callee())
	case o.Kind == OpWriteBack:
		fmt.Fprintf(&b, "[%s]", o.Node)
		return b.String()
	case o.Kind >= OpMoveTo && o.Kind <= OpGetGlobal:
		fmt.Fprintf(&b, "<%s>", o.Memory().Qualified())
	}
	if len(o.Inst) > 0 {
		parts := make([]string, len(o.Inst))
		for i, t := range o.Inst {
			parts[i] = t.String()
		}
		fmt.Fprintf(&b, "<%s>", strings.Join(parts, ", "))
	}
	return b.String()
}

// Callees returns the distinct functions called by code, in order of first
// call.
func Callees(code []Bytecode) []ir.QualifiedID[ir.FunID] {
	var out []ir.QualifiedID[ir.FunID]
	seen := make(map[ir.QualifiedID[ir.FunID]]bool)
	for _, instr := range code {
		call, ok := instr.(Call)
		if !ok || !call.Oper.IsCall() {
			continue
		}
		callee := call.Oper.Callee()
		if !seen[callee] {
			seen[callee] = true
			out = append(out, callee)
		}
	}
	return out
}
