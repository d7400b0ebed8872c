package compiler

import (
	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/model"
)

type binding struct {
	name string
	ty   ir.Type
}

// expCompiler compiles expression descriptions in the scope of a module.
// Temporaries are typed by locals; bound names by the binder in scope.
type expCompiler struct {
	c      *compiler
	m      *model.ModuleData
	locals []ir.Type
	scope  []binding

	// specFun is set while compiling a specification function body, whose
	// calls may not carry labels.
	specFun bool
}

func (c *compiler) newExpCompiler(m *model.ModuleData, locals []ir.Type) *expCompiler {
	return &expCompiler{c: c, m: m, locals: locals}
}

func (x *expCompiler) bind(name string, ty ir.Type) {
	x.scope = append(x.scope, binding{name: name, ty: ty})
}

func (x *expCompiler) lookup(name string) (ir.Type, bool) {
	for i := len(x.scope) - 1; i >= 0; i-- {
		if x.scope[i].name == name {
			return x.scope[i].ty, true
		}
	}
	return nil, false
}

func (x *expCompiler) loc() ir.Loc { return ir.Loc{File: x.c.src.Name} }

func (x *expCompiler) node(ty ir.Type) ir.NodeID { return x.c.env.NewNode(x.loc(), ty) }

func (x *expCompiler) arena() *ir.Arena { return x.c.env.Arena() }

func (x *expCompiler) typeOf(e ir.Exp) ir.Type { return x.c.env.NodeType(e.NodeID()) }

func (x *expCompiler) compile(path string, d *ExpDesc) (ir.Exp, error) {
	a := x.arena()
	switch {
	case d == nil:
		return ir.Exp{}, x.c.errorf(ErrBadExp, path, "missing expression")
	case d.Invalid:
		return a.Invalid(x.node(ir.ErrorType{})), nil
	case d.Bool != nil:
		return a.Value(x.node(ir.BoolType), ir.BoolValue(*d.Bool)), nil
	case d.Num != nil:
		return a.Value(x.node(ir.NumType), ir.Number(*d.Num)), nil
	case d.Address != "":
		n, err := parseAddress(d.Address)
		if err != nil {
			return ir.Exp{}, x.c.errorf(ErrBadExp, path+".address", "%v", err)
		}
		return a.Value(x.node(ir.AddressType), ir.Address(n)), nil
	case d.Var != "":
		ty, ok := x.lookup(d.Var)
		if !ok {
			return ir.Exp{}, x.c.errorf(ErrUnresolved, path+".var", "unbound variable %s", d.Var)
		}
		return a.LocalVar(x.node(ty), x.c.env.Symbol(d.Var)), nil
	case d.Temp != nil:
		idx := *d.Temp
		if idx < 0 || idx >= len(x.locals) {
			return ir.Exp{}, x.c.errorf(ErrUnresolved, path+".temp", "temporary %d out of range (%d locals)", idx, len(x.locals))
		}
		return a.Temp(x.node(x.locals[idx]), idx), nil
	case d.Quant != "":
		return x.quant(path, d)
	case d.Let != nil:
		return x.block(path, d)
	case d.If != nil:
		return x.ifElse(path, d)
	case d.Op != "":
		return x.call(path, d)
	}
	return ir.Exp{}, x.c.errorf(ErrBadExp, path, "empty expression")
}

func (x *expCompiler) compileAll(path string, ds []ExpDesc) ([]ir.Exp, error) {
	out := make([]ir.Exp, len(ds))
	for i := range ds {
		e, err := x.compile(indexPath(path, i), &ds[i])
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (x *expCompiler) parseType(path, s string) (ir.Type, error) {
	return x.c.parseType(x.m, path, s)
}

func (x *expCompiler) quant(path string, d *ExpDesc) (ir.Exp, error) {
	kind, ok := ir.ParseQuantKind(d.Quant)
	if !ok {
		return ir.Exp{}, x.c.errorf(ErrBadExp, path+".quant", "unknown quantifier %q", d.Quant)
	}
	if len(d.Ranges) == 0 {
		return ir.Exp{}, x.c.errorf(ErrBadExp, path+".ranges", "quantifier without ranges")
	}

	depth := len(x.scope)
	defer func() { x.scope = x.scope[:depth] }()

	ranges := make([]ir.QuantRange, len(d.Ranges))
	for i, r := range d.Ranges {
		rp := indexPath(path+".ranges", i)
		ty, err := x.parseType(rp+".type", r.Type)
		if err != nil {
			return ir.Exp{}, err
		}
		var domain ir.Exp
		if r.Domain != nil {
			if domain, err = x.compile(rp+".domain", r.Domain); err != nil {
				return ir.Exp{}, err
			}
		} else {
			id := x.c.env.NewInstNode(x.loc(), ty, ty)
			domain = x.arena().Call(id, ir.Op(ir.OpTypeDomain))
		}
		ranges[i] = ir.QuantRange{
			Decl:   ir.LocalVarDecl{ID: x.node(ty), Name: x.c.env.Symbol(r.Name)},
			Domain: domain,
		}
		x.bind(r.Name, ty)
	}

	var where ir.Exp
	if d.Where != nil {
		var err error
		if where, err = x.compile(path+".where", d.Where); err != nil {
			return ir.Exp{}, err
		}
	}
	body, err := x.compile(path+".body", d.Body)
	if err != nil {
		return ir.Exp{}, err
	}

	var ty ir.Type = ir.BoolType
	if kind.IsChoice() {
		ty = x.c.env.NodeType(ranges[0].Decl.ID)
	}
	return x.arena().Quant(x.node(ty), kind, ranges, nil, where, body), nil
}

func (x *expCompiler) block(path string, d *ExpDesc) (ir.Exp, error) {
	depth := len(x.scope)
	defer func() { x.scope = x.scope[:depth] }()

	decls := make([]ir.LocalVarDecl, len(d.Let))
	for i, l := range d.Let {
		lp := indexPath(path+".let", i)
		bound, err := x.compile(lp+".bind", &l.Bind)
		if err != nil {
			return ir.Exp{}, err
		}
		ty := x.typeOf(bound)
		if l.Type != "" {
			if ty, err = x.parseType(lp+".type", l.Type); err != nil {
				return ir.Exp{}, err
			}
		}
		decls[i] = ir.LocalVarDecl{ID: x.node(ty), Name: x.c.env.Symbol(l.Name), Binding: bound}
		x.bind(l.Name, ty)
	}
	body, err := x.compile(path+".body", d.Body)
	if err != nil {
		return ir.Exp{}, err
	}
	return x.arena().Block(x.node(x.typeOf(body)), decls, body), nil
}

func (x *expCompiler) ifElse(path string, d *ExpDesc) (ir.Exp, error) {
	cond, err := x.compile(path+".if", d.If)
	if err != nil {
		return ir.Exp{}, err
	}
	then, err := x.compile(path+".then", d.Then)
	if err != nil {
		return ir.Exp{}, err
	}
	els, err := x.compile(path+".else", d.Else)
	if err != nil {
		return ir.Exp{}, err
	}
	return x.arena().IfElse(x.node(x.typeOf(then)), cond, then, els), nil
}

func (x *expCompiler) call(path string, d *ExpDesc) (ir.Exp, error) {
	kind, ok := ir.ParseOpKind(d.Op)
	if !ok {
		return ir.Exp{}, x.c.errorf(ErrBadExp, path+".op", "unknown operation %q", d.Op)
	}
	args, err := x.compileAll(path+".args", d.Args)
	if err != nil {
		return ir.Exp{}, err
	}
	var override ir.Type
	if d.Type != "" {
		if override, err = x.parseType(path+".type", d.Type); err != nil {
			return ir.Exp{}, err
		}
	}
	withType := func(ty ir.Type) ir.Type {
		if override != nil {
			return override
		}
		return ty
	}
	a := x.arena()
	env := x.c.env

	switch kind {
	case ir.OpExists, ir.OpGlobal:
		st, err := x.structType(path+".mem", d.Mem)
		if err != nil {
			return ir.Exp{}, err
		}
		var label *ir.MemoryLabel
		if d.Label != nil {
			label = ir.Label(ir.MemoryLabel(*d.Label))
		}
		if kind == ir.OpExists {
			return a.Call(env.NewInstNode(x.loc(), ir.BoolType, st), ir.ExistsOp(label), args...), nil
		}
		return a.Call(env.NewInstNode(x.loc(), withType(st), st), ir.GlobalOp(label), args...), nil

	case ir.OpPack:
		st, err := x.structType(path+".mem", d.Mem)
		if err != nil {
			return ir.Exp{}, err
		}
		return a.Call(env.NewInstNode(x.loc(), st, st.Args...), ir.PackOp(st.Module, st.Struct), args...), nil

	case ir.OpSelect, ir.OpUpdateField:
		return x.field(path, kind, d, args, withType)

	case ir.OpFunction:
		module, name := splitName(d.Fun)
		target, err := x.c.module(x.m, module)
		if err != nil {
			return ir.Exp{}, x.c.errorf(ErrUnresolved, path+".fun", "%v", err)
		}
		f, ok := target.FindSpecFun(name)
		if !ok {
			return ir.Exp{}, x.c.errorf(ErrUnresolved, path+".fun", "unknown spec fun %s", d.Fun)
		}
		inst, err := x.c.typeList(x.m, path+".inst", d.Inst)
		if err != nil {
			return ir.Exp{}, err
		}
		if len(inst) != f.TypeParams {
			return ir.Exp{}, x.c.errorf(ErrBadExp, path+".inst", "%s expects %d type arguments, got %d",
				d.Fun, f.TypeParams, len(inst))
		}
		var result ir.Type = ir.ErrorType{}
		if f.Result != nil {
			result = ir.Instantiate(f.Result, inst)
		}
		var labels []ir.MemoryLabel
		if d.Labels != nil {
			if x.specFun {
				return ir.Exp{}, x.c.errorf(ErrBadExp, path+".labels", "calls in spec fun bodies cannot carry labels")
			}
			labels = make([]ir.MemoryLabel, len(d.Labels))
			for i, l := range d.Labels {
				labels[i] = ir.MemoryLabel(l)
			}
			x.c.labelled = append(x.c.labelled, labelledCall{path: path + ".labels", fun: f, labels: len(labels)})
		}
		id := env.NewInstNode(x.loc(), withType(result), inst...)
		return a.Call(id, ir.FunctionOp(target.ID, f.ID, labels), args...), nil

	case ir.OpResult:
		if override == nil {
			return ir.Exp{}, x.c.errorf(ErrBadExp, path+".type", "result needs a type")
		}
		return a.Call(x.node(override), ir.ResultOp(d.Index), args...), nil

	case ir.OpTypeDomain, ir.OpResourceDomain, ir.OpTypeValue:
		if override == nil {
			return ir.Exp{}, x.c.errorf(ErrBadExp, path+".type", "%s needs a type", d.Op)
		}
		return a.Call(env.NewInstNode(x.loc(), override, override), ir.Op(kind), args...), nil

	case ir.OpOld:
		if len(args) != 1 {
			return ir.Exp{}, x.c.errorf(ErrBadExp, path+".args", "old takes one argument")
		}
		return a.Call(x.node(withType(x.typeOf(args[0]))), ir.Op(kind), args...), nil
	}

	return a.Call(x.node(withType(x.resultType(kind, args))), ir.Op(kind), args...), nil
}

// resultType is the type of an operation without a declaration.
func (x *expCompiler) resultType(kind ir.OpKind, args []ir.Exp) ir.Type {
	switch kind {
	case ir.OpImplies, ir.OpIff, ir.OpAnd, ir.OpOr, ir.OpNot, ir.OpEq, ir.OpIdentical, ir.OpNeq,
		ir.OpLt, ir.OpGt, ir.OpLe, ir.OpGe, ir.OpContainsVec, ir.OpInRangeRange, ir.OpInRangeVec,
		ir.OpCanModify, ir.OpAbortFlag, ir.OpWellFormed, ir.OpEventStoreIncludes, ir.OpEventStoreIncludedIn:
		return ir.BoolType
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpMod, ir.OpDiv, ir.OpBitOr, ir.OpBitAnd, ir.OpXor,
		ir.OpShl, ir.OpShr, ir.OpLen, ir.OpIndexOfVec, ir.OpMaxU8, ir.OpMaxU64, ir.OpMaxU128, ir.OpAbortCode:
		return ir.NumType
	case ir.OpRange:
		return ir.RangeType
	case ir.OpEmptyEventStore, ir.OpExtendEventStore:
		return ir.EventStoreType
	}
	if len(args) > 0 {
		return x.typeOf(args[0])
	}
	return ir.BoolType
}

func (x *expCompiler) field(path string, kind ir.OpKind, d *ExpDesc, args []ir.Exp, withType func(ir.Type) ir.Type) (ir.Exp, error) {
	structName, fname, ok := fieldName(d.Field)
	if !ok {
		return ir.Exp{}, x.c.errorf(ErrBadExp, path+".field", "field %q is not of the form S.f", d.Field)
	}
	module, name := splitName(structName)
	target, err := x.c.module(x.m, module)
	if err != nil {
		return ir.Exp{}, x.c.errorf(ErrUnresolved, path+".field", "%v", err)
	}
	s, ok := target.FindStruct(name)
	if !ok {
		return ir.Exp{}, x.c.errorf(ErrUnresolved, path+".field", "unknown struct %s", structName)
	}
	f, ok := target.FindField(s, fname)
	if !ok {
		return ir.Exp{}, x.c.errorf(ErrUnresolved, path+".field", "unknown field %s", d.Field)
	}
	if len(args) == 0 {
		return ir.Exp{}, x.c.errorf(ErrBadExp, path+".args", "%s needs a struct argument", d.Op)
	}

	var targs []ir.Type
	structTy := x.typeOf(args[0])
	if st, ok := structTy.(ir.StructType); ok {
		targs = st.Args
	}
	if kind == ir.OpSelect {
		id := x.node(withType(ir.Instantiate(f.Type, targs)))
		return x.arena().Call(id, ir.SelectOp(target.ID, s.ID, f.ID), args...), nil
	}
	id := x.node(withType(structTy))
	return x.arena().Call(id, ir.UpdateFieldOp(target.ID, s.ID, f.ID), args...), nil
}

func (x *expCompiler) structType(path, s string) (ir.StructType, error) {
	ty, err := x.parseType(path, s)
	if err != nil {
		return ir.StructType{}, err
	}
	st, ok := ty.(ir.StructType)
	if !ok {
		return ir.StructType{}, x.c.errorf(ErrBadType, path, "%s is not a struct type", s)
	}
	return st, nil
}
