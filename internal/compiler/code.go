package compiler

import (
	"fmt"

	"github.com/roach88/specflow/internal/bytecode"
	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/model"
)

// code compiles the instructions of one function variant. A trailing
// return is added when the code does not end in ret or abort.
func (c *compiler) code(m *model.ModuleData, locals []ir.Type, path string, instrs []InstrDesc) ([]bytecode.Bytecode, error) {
	out := make([]bytecode.Bytecode, 0, len(instrs)+1)
	for i := range instrs {
		b, err := c.instr(m, locals, indexPath(path, i), &instrs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return append(out, bytecode.Ret{}), nil
	}
	switch out[len(out)-1].(type) {
	case bytecode.Ret, bytecode.Abort:
	default:
		out = append(out, bytecode.Ret{})
	}
	return out, nil
}

func (c *compiler) instr(m *model.ModuleData, locals []ir.Type, path string, d *InstrDesc) (bytecode.Bytecode, error) {
	switch d.Op {
	case "assign":
		return bytecode.Assign{Dest: d.Dest, Src: d.Src}, nil
	case "ret":
		return bytecode.Ret{}, nil
	case "branch":
		return bytecode.Branch{Then: bytecode.LabelID(d.Then), Else: bytecode.LabelID(d.Else), Cond: d.Src}, nil
	case "jump":
		return bytecode.Jump{Target: bytecode.LabelID(d.Target)}, nil
	case "label":
		return bytecode.Label{Label: bytecode.LabelID(d.Label)}, nil
	case "abort":
		return bytecode.Abort{Src: d.Src}, nil
	case "nop":
		return bytecode.Nop{}, nil
	case "assert", "assume", "modifies":
		exp, err := c.newExpCompiler(m, locals).compile(path+".exp", d.Exp)
		if err != nil {
			return nil, err
		}
		return bytecode.Prop{Kind: propKind(d.Op), Exp: exp}, nil
	}

	kind, ok := bytecode.ParseOpKind(d.Op)
	if !ok {
		return nil, c.errorf(ErrBadInstr, path+".op", "unknown op %q", d.Op)
	}
	inst, err := c.typeList(m, path+".inst", d.Inst)
	if err != nil {
		return nil, err
	}

	switch kind {
	case bytecode.OpFunction, bytecode.OpOpaqueCallBegin, bytecode.OpOpaqueCallEnd:
		module, name := splitName(d.Fun)
		target, err := c.module(m, module)
		if err != nil {
			return nil, c.errorf(ErrUnresolved, path+".fun", "%v", err)
		}
		f, ok := target.FindFunction(name)
		if !ok {
			return nil, c.errorf(ErrUnresolved, path+".fun", "unknown function %s", d.Fun)
		}
		if len(inst) != f.TypeParams {
			return nil, c.errorf(ErrBadInstr, path+".inst", "%s expects %d type arguments, got %d",
				d.Fun, f.TypeParams, len(inst))
		}
		return bytecode.Call{Oper: bytecode.FunctionCall(kind, target.ID, f.ID, inst)}, nil

	case bytecode.OpMoveTo, bytecode.OpMoveFrom, bytecode.OpBorrowGlobal, bytecode.OpExists, bytecode.OpGetGlobal:
		mem, err := c.memory(m, path+".struct", d.Struct, inst)
		if err != nil {
			return nil, err
		}
		return bytecode.Call{Oper: bytecode.MemoryOp(kind, mem.Module, mem.ID, mem.Inst)}, nil

	case bytecode.OpWriteBack:
		node := bytecode.BorrowNode{Temp: d.Temp}
		switch d.Root {
		case "global":
			mem, err := c.memory(m, path+".struct", d.Struct, inst)
			if err != nil {
				return nil, err
			}
			node.Kind, node.Memory = bytecode.GlobalRoot, mem
		case "local":
			node.Kind = bytecode.LocalRoot
		case "reference":
			node.Kind = bytecode.Reference
		default:
			return nil, c.errorf(ErrBadInstr, path+".root", "write_back root must be global, local or reference, got %q", d.Root)
		}
		return bytecode.Call{Oper: bytecode.WriteBack(node)}, nil
	}
	return bytecode.Call{Oper: bytecode.Simple(kind)}, nil
}

func propKind(op string) bytecode.PropKind {
	switch op {
	case "assume":
		return bytecode.Assume
	case "modifies":
		return bytecode.Modifies
	}
	return bytecode.Assert
}

// memory resolves a struct name instantiated with inst.
func (c *compiler) memory(m *model.ModuleData, path, name string, inst []ir.Type) (ir.QualifiedInstID[ir.StructID], error) {
	module, sname := splitName(name)
	mid, sid, arity, err := c.resolver(m)(module, sname)
	if err != nil {
		return ir.QualifiedInstID[ir.StructID]{}, c.errorf(ErrUnresolved, path, "%v", err)
	}
	if len(inst) != arity {
		return ir.QualifiedInstID[ir.StructID]{}, c.errorf(ErrBadInstr, path,
			"%s expects %d type arguments, got %d", name, arity, len(inst))
	}
	return ir.QualifiedInstID[ir.StructID]{Module: mid, ID: sid, Inst: inst}, nil
}

func (c *compiler) typeList(m *model.ModuleData, path string, ss []string) ([]ir.Type, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	out := make([]ir.Type, len(ss))
	for i, s := range ss {
		ty, err := c.parseType(m, fmt.Sprintf("%s[%d]", path, i), s)
		if err != nil {
			return nil, err
		}
		out[i] = ty
	}
	return out, nil
}
