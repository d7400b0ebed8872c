package ir

// ExpRewriter inspects an expression. It returns the replacement and true
// to accept, which stops descent at that node, or false to decline, in which
// case the children are rewritten instead.
type ExpRewriter func(e Exp) (Exp, bool)

// NodeRewriter returns a replacement id and true, or false to keep id.
type NodeRewriter func(id NodeID) (NodeID, bool)

// Rewrite rewrites e top-down with f.
//
// A declined node is rebuilt only if one of its children changed, so when f
// declines everywhere the result is the original handle.
func Rewrite(e Exp, f ExpRewriter) Exp {
	r := rewriter{exp: f}
	return r.rewrite(e)
}

// RewriteNodeID rewrites the node ids in e with g.
func RewriteNodeID(e Exp, g NodeRewriter) Exp {
	r := rewriter{node: g}
	return r.rewrite(e)
}

// RewriteExpAndNodeID combines Rewrite and RewriteNodeID in one pass.
func RewriteExpAndNodeID(e Exp, f ExpRewriter, g NodeRewriter) Exp {
	r := rewriter{exp: f, node: g}
	return r.rewrite(e)
}

// InstantiateNode is a NodeRewriter body that substitutes targs into the
// type and instantiation of id. It allocates a new node only when one of
// them actually changes.
func InstantiateNode(env Env, id NodeID, targs []Type) (NodeID, bool) {
	if len(targs) == 0 {
		return id, false
	}
	ty := env.NodeType(id)
	newTy := Instantiate(ty, targs)
	inst, hasInst := env.NodeInstantiation(id)
	newInst := InstantiateVec(inst, targs)

	changed := !TypesEqual(ty, newTy)
	for i := range inst {
		if !TypesEqual(inst[i], newInst[i]) {
			changed = true
		}
	}
	if !changed {
		return id, false
	}
	newID := env.NewNode(env.NodeLoc(id), newTy)
	if hasInst {
		env.SetNodeInstantiation(newID, newInst)
	}
	return newID, true
}

type rewriter struct {
	exp  ExpRewriter
	node NodeRewriter
}

func (r *rewriter) rewrite(e Exp) Exp {
	if e.IsZero() {
		return e
	}
	if r.exp != nil {
		if replacement, ok := r.exp(e); ok {
			return replacement
		}
	}
	return r.descend(e)
}

func (r *rewriter) id(id NodeID) (NodeID, bool) {
	if r.node == nil {
		return id, false
	}
	if newID, ok := r.node(id); ok && newID != id {
		return newID, true
	}
	return id, false
}

func (r *rewriter) exps(exps []Exp) ([]Exp, bool) {
	var out []Exp
	for i, e := range exps {
		ne := r.rewrite(e)
		if ne != e && out == nil {
			out = make([]Exp, len(exps))
			copy(out, exps[:i])
		}
		if out != nil {
			out[i] = ne
		}
	}
	if out == nil {
		return exps, false
	}
	return out, true
}

func (r *rewriter) decl(d LocalVarDecl) (LocalVarDecl, bool) {
	id, idChanged := r.id(d.ID)
	binding := r.rewrite(d.Binding)
	if !idChanged && binding == d.Binding {
		return d, false
	}
	return LocalVarDecl{ID: id, Name: d.Name, Binding: binding}, true
}

func (r *rewriter) decls(decls []LocalVarDecl) ([]LocalVarDecl, bool) {
	var out []LocalVarDecl
	for i, d := range decls {
		nd, changed := r.decl(d)
		if changed && out == nil {
			out = make([]LocalVarDecl, len(decls))
			copy(out, decls[:i])
		}
		if out != nil {
			out[i] = nd
		}
	}
	if out == nil {
		return decls, false
	}
	return out, true
}

func (r *rewriter) descend(e Exp) Exp {
	a := e.arena
	switch d := e.Data().(type) {
	case Invalid:
		if id, changed := r.id(d.ID); changed {
			return a.Intern(Invalid{ID: id})
		}
	case ValueExp:
		if id, changed := r.id(d.ID); changed {
			return a.Intern(ValueExp{ID: id, Value: d.Value})
		}
	case LocalVar:
		if id, changed := r.id(d.ID); changed {
			return a.Intern(LocalVar{ID: id, Name: d.Name})
		}
	case Temporary:
		if id, changed := r.id(d.ID); changed {
			return a.Intern(Temporary{ID: id, Index: d.Index})
		}
	case Call:
		id, idChanged := r.id(d.ID)
		args, argsChanged := r.exps(d.Args)
		if idChanged || argsChanged {
			return a.Intern(Call{ID: id, Oper: d.Oper, Args: args})
		}
	case Invoke:
		id, idChanged := r.id(d.ID)
		target := r.rewrite(d.Target)
		args, argsChanged := r.exps(d.Args)
		if idChanged || argsChanged || target != d.Target {
			return a.Intern(Invoke{ID: id, Target: target, Args: args})
		}
	case Lambda:
		id, idChanged := r.id(d.ID)
		params, paramsChanged := r.decls(d.Params)
		body := r.rewrite(d.Body)
		if idChanged || paramsChanged || body != d.Body {
			return a.Intern(Lambda{ID: id, Params: params, Body: body})
		}
	case Quant:
		id, changed := r.id(d.ID)
		ranges := make([]QuantRange, len(d.Ranges))
		for i, rng := range d.Ranges {
			decl, declChanged := r.decl(rng.Decl)
			domain := r.rewrite(rng.Domain)
			ranges[i] = QuantRange{Decl: decl, Domain: domain}
			changed = changed || declChanged || domain != rng.Domain
		}
		triggers := make([][]Exp, len(d.Triggers))
		for i, group := range d.Triggers {
			ng, groupChanged := r.exps(group)
			triggers[i] = ng
			changed = changed || groupChanged
		}
		where := r.rewrite(d.Where)
		body := r.rewrite(d.Body)
		if changed || where != d.Where || body != d.Body {
			return a.Intern(Quant{ID: id, Kind: d.Kind, Ranges: ranges, Triggers: triggers, Where: where, Body: body})
		}
	case Block:
		id, idChanged := r.id(d.ID)
		decls, declsChanged := r.decls(d.Decls)
		body := r.rewrite(d.Body)
		if idChanged || declsChanged || body != d.Body {
			return a.Intern(Block{ID: id, Decls: decls, Body: body})
		}
	case IfElse:
		id, idChanged := r.id(d.ID)
		cond := r.rewrite(d.Cond)
		then := r.rewrite(d.Then)
		els := r.rewrite(d.Else)
		if idChanged || cond != d.Cond || then != d.Then || els != d.Else {
			return a.Intern(IfElse{ID: id, Cond: cond, Then: then, Else: els})
		}
	}
	return e
}
