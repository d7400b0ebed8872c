package testutil

import (
	"math/big"

	"github.com/roach88/specflow/internal/bytecode"
	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/model"
	"github.com/roach88/specflow/internal/pipeline"
)

// Program builds a one-module program for tests.
type Program struct {
	Env    *model.GlobalEnv
	Holder *pipeline.TargetsHolder
	Module *model.ModuleData
}

// NewProgram creates a program with a single target module.
func NewProgram(module string) *Program {
	env := model.NewGlobalEnv()
	return &Program{
		Env:    env,
		Holder: pipeline.NewTargetsHolder(),
		Module: env.AddModule(big.NewInt(1), module, true),
	}
}

// Struct declares a struct with typeParams type parameters.
func (p *Program) Struct(name string, typeParams int) *model.StructData {
	return p.Module.AddStruct(name, typeParams)
}

// Mem returns the memory of s instantiated with inst.
func (p *Program) Mem(s *model.StructData, inst ...ir.Type) ir.QualifiedInstID[ir.StructID] {
	return ir.QualifiedInstID[ir.StructID]{Module: p.Module.ID, ID: s.ID, Inst: inst}
}

// Declare declares a function without registering code for it.
func (p *Program) Declare(name string) pipeline.FunID {
	return p.Module.FunctionID(p.Module.AddFunction(name, 0).ID)
}

// Function declares a function and registers its baseline code. A return
// is appended to code.
func (p *Program) Function(name string, code ...bytecode.Bytecode) pipeline.FunID {
	fun := p.Declare(name)
	p.SetCode(fun, pipeline.Baseline, code...)
	return fun
}

// SetCode registers code for a variant of fun. A return is appended.
func (p *Program) SetCode(fun pipeline.FunID, variant pipeline.Variant, code ...bytecode.Bytecode) {
	code = append(code, bytecode.Ret{})
	p.Holder.AddTarget(fun, pipeline.NewFunctionData(variant, code, nil))
}

// Decl returns the declaration of fun.
func (p *Program) Decl(fun pipeline.FunID) *model.FunDecl {
	return p.Env.Function(fun)
}

// Call calls fun with the given type arguments.
func (p *Program) Call(fun pipeline.FunID, inst ...ir.Type) bytecode.Bytecode {
	return bytecode.Call{Oper: bytecode.FunctionCall(bytecode.OpFunction, fun.Module, fun.ID, inst)}
}

// MemOp applies a global memory operation to s.
func (p *Program) MemOp(kind bytecode.OpKind, s *model.StructData, inst ...ir.Type) bytecode.Bytecode {
	return bytecode.Call{Oper: bytecode.MemoryOp(kind, p.Module.ID, s.ID, inst)}
}

// WriteBackGlobal writes a reference back to the global memory of s.
func (p *Program) WriteBackGlobal(s *model.StructData, inst ...ir.Type) bytecode.Bytecode {
	return bytecode.Call{Oper: bytecode.WriteBack(bytecode.BorrowNode{Kind: bytecode.GlobalRoot, Memory: p.Mem(s, inst...)})}
}

// Address is the address literal 0x1.
func (p *Program) Address() ir.Exp {
	return p.Env.Arena().Value(p.Env.NewNode(ir.Loc{}, ir.AddressType), ir.Address(big.NewInt(1)))
}

// Exists builds exists<S<inst>>(0x1).
func (p *Program) Exists(s *model.StructData, inst ...ir.Type) ir.Exp {
	id := p.Env.NewInstNode(ir.Loc{}, ir.BoolType, p.Module.StructType(s, inst...))
	return p.Env.Arena().Call(id, ir.ExistsOp(nil), p.Address())
}

// Global builds global<S<inst>>(0x1).
func (p *Program) Global(s *model.StructData, inst ...ir.Type) ir.Exp {
	ty := p.Module.StructType(s, inst...)
	id := p.Env.NewInstNode(ir.Loc{}, ty, ty)
	return p.Env.Arena().Call(id, ir.GlobalOp(nil), p.Address())
}

// True is the boolean literal true.
func (p *Program) True() ir.Exp {
	return p.Env.Arena().Value(p.Env.NewNode(ir.Loc{}, ir.BoolType), ir.BoolValue(true))
}

// AddCondition attaches a condition of the given kind to fun's spec.
func (p *Program) AddCondition(fun pipeline.FunID, tag ir.ConditionTag, exp ir.Exp, additional ...ir.Exp) {
	decl := p.Decl(fun)
	decl.Spec.Conditions = append(decl.Spec.Conditions, ir.Condition{
		Kind:           ir.Kind(tag),
		Exp:            exp,
		AdditionalExps: additional,
	})
}

// Prop is a specification property instruction.
func (p *Program) Prop(kind bytecode.PropKind, exp ir.Exp) bytecode.Bytecode {
	return bytecode.Prop{Kind: kind, Exp: exp}
}

// Select builds global<S<inst>>(0x1).field for the first field of s.
func (p *Program) Select(s *model.StructData, inst ...ir.Type) ir.Exp {
	global := p.Global(s, inst...)
	var fieldType ir.Type = ir.NumType
	if len(s.Fields) > 0 {
		fieldType = s.Fields[0].Type
	}
	id := p.Env.NewNode(ir.Loc{}, fieldType)
	return p.Env.Arena().Call(id, ir.SelectOp(p.Module.ID, s.ID, 0), global)
}
