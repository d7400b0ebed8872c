package ir

// VisitPrePost calls visitor(false, e) before descending into e and
// visitor(true, e) after. Children are visited in a fixed order:
//
//   - Call: args
//   - Invoke: target, then args
//   - Lambda: body
//   - Quant: for each range its binding (if any) and domain, then the
//     trigger groups, then the filter (if any), then the body
//   - Block: each declaration's binding (if any), then the body
//   - IfElse: condition, then, else
func (e Exp) VisitPrePost(visitor func(post bool, e Exp)) {
	if e.IsZero() {
		return
	}
	visitor(false, e)
	switch d := e.Data().(type) {
	case Call:
		for _, arg := range d.Args {
			arg.VisitPrePost(visitor)
		}
	case Invoke:
		d.Target.VisitPrePost(visitor)
		for _, arg := range d.Args {
			arg.VisitPrePost(visitor)
		}
	case Lambda:
		d.Body.VisitPrePost(visitor)
	case Quant:
		for _, r := range d.Ranges {
			r.Decl.Binding.VisitPrePost(visitor)
			r.Domain.VisitPrePost(visitor)
		}
		for _, group := range d.Triggers {
			for _, t := range group {
				t.VisitPrePost(visitor)
			}
		}
		d.Where.VisitPrePost(visitor)
		d.Body.VisitPrePost(visitor)
	case Block:
		for _, decl := range d.Decls {
			decl.Binding.VisitPrePost(visitor)
		}
		d.Body.VisitPrePost(visitor)
	case IfElse:
		d.Cond.VisitPrePost(visitor)
		d.Then.VisitPrePost(visitor)
		d.Else.VisitPrePost(visitor)
	case ValueExp, LocalVar, Temporary, Invalid:
	}
	visitor(true, e)
}

// Visit calls visitor on every sub-expression in post-order.
func (e Exp) Visit(visitor func(e Exp)) {
	e.VisitPrePost(func(post bool, x Exp) {
		if post {
			visitor(x)
		}
	})
}

// Any reports whether pred holds for some sub-expression.
func (e Exp) Any(pred func(e Exp) bool) bool {
	found := false
	e.Visit(func(x Exp) {
		if !found {
			found = pred(x)
		}
	})
	return found
}

// NodeIDs returns the ids of all nodes in post-order.
func (e Exp) NodeIDs() []NodeID {
	var ids []NodeID
	e.Visit(func(x Exp) {
		ids = append(ids, x.NodeID())
	})
	return ids
}

// boundNames returns the names a node declares for its children.
func boundNames(data ExpData) []Symbol {
	var decls []LocalVarDecl
	switch d := data.(type) {
	case Lambda:
		decls = d.Params
	case Block:
		decls = d.Decls
	case Quant:
		names := make([]Symbol, len(d.Ranges))
		for i, r := range d.Ranges {
			names[i] = r.Decl.Name
		}
		return names
	}
	names := make([]Symbol, len(decls))
	for i, decl := range decls {
		names[i] = decl.Name
	}
	return names
}
