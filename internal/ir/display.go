package ir

import (
	"fmt"
	"strings"
)

// Display renders e for diagnostics.
func (e Exp) Display(env Env) string {
	var b strings.Builder
	writeExp(&b, env, e)
	return b.String()
}

func writeExp(b *strings.Builder, env Env, e Exp) {
	pool := env.SymbolPool()
	switch d := e.Data().(type) {
	case Invalid:
		b.WriteString("*invalid*")
	case ValueExp:
		b.WriteString(d.Value.String())
	case LocalVar:
		b.WriteString(pool.String(d.Name))
	case Temporary:
		fmt.Fprintf(b, "$t%d", d.Index)
	case Call:
		writeOperation(b, env, d)
		b.WriteByte('(')
		writeExps(b, env, d.Args)
		b.WriteByte(')')
	case Invoke:
		b.WriteByte('(')
		writeExp(b, env, d.Target)
		b.WriteString(")(")
		writeExps(b, env, d.Args)
		b.WriteByte(')')
	case Lambda:
		b.WriteByte('|')
		writeDecls(b, env, d.Params)
		b.WriteString("| ")
		writeExp(b, env, d.Body)
	case Block:
		b.WriteString("{let ")
		writeDecls(b, env, d.Decls)
		b.WriteString("; ")
		writeExp(b, env, d.Body)
		b.WriteByte('}')
	case Quant:
		b.WriteString(d.Kind.String())
		b.WriteByte(' ')
		for i, r := range d.Ranges {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pool.String(r.Decl.Name))
			b.WriteString(": ")
			writeExp(b, env, r.Domain)
		}
		for _, group := range d.Triggers {
			b.WriteByte('{')
			writeExps(b, env, group)
			b.WriteByte('}')
		}
		if !d.Where.IsZero() {
			b.WriteString(" where ")
			writeExp(b, env, d.Where)
		}
		b.WriteString(": ")
		writeExp(b, env, d.Body)
	case IfElse:
		b.WriteString("(if ")
		writeExp(b, env, d.Cond)
		b.WriteString(" {")
		writeExp(b, env, d.Then)
		b.WriteString("} else {")
		writeExp(b, env, d.Else)
		b.WriteString("})")
	}
}

func writeExps(b *strings.Builder, env Env, exps []Exp) {
	for i, e := range exps {
		if i > 0 {
			b.WriteString(", ")
		}
		writeExp(b, env, e)
	}
}

func writeDecls(b *strings.Builder, env Env, decls []LocalVarDecl) {
	for i, d := range decls {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(env.SymbolPool().String(d.Name))
		if !d.Binding.IsZero() {
			b.WriteString(" = ")
			writeExp(b, env, d.Binding)
		}
	}
}

func writeOperation(b *strings.Builder, env Env, call Call) {
	o := call.Oper
	switch o.Kind {
	case OpFunction:
		b.WriteString(env.SpecFunName(o.Module, o.Fun))
		if o.Labels != nil {
			labels := make([]string, len(o.Labels))
			for i, l := range o.Labels {
				labels[i] = l.String()
			}
			fmt.Fprintf(b, "[%s]", strings.Join(labels, ", "))
		}
	case OpGlobal, OpExists:
		b.WriteString(o.Kind.String())
		if o.Label != nil {
			fmt.Fprintf(b, "[%s]", o.Label)
		}
	case OpPack:
		b.WriteString("pack ")
		b.WriteString(env.QualifiedStructName(o.Module, o.Struct))
	case OpSelect:
		fmt.Fprintf(b, "select %s.%s", env.QualifiedStructName(o.Module, o.Struct),
			env.FieldName(o.Module, o.Struct, o.Field))
	case OpUpdateField:
		fmt.Fprintf(b, "update %s.%s", env.QualifiedStructName(o.Module, o.Struct),
			env.FieldName(o.Module, o.Struct, o.Field))
	case OpResult:
		fmt.Fprintf(b, "result%d", o.Index)
	default:
		b.WriteString(o.Kind.String())
	}

	if inst, ok := env.NodeInstantiation(call.ID); ok && len(inst) > 0 {
		parts := make([]string, len(inst))
		for i, t := range inst {
			parts[i] = env.TypeString(t)
		}
		fmt.Fprintf(b, "<%s>", strings.Join(parts, ", "))
	}
}

// DisplayCondition renders a condition for diagnostics.
func DisplayCondition(env Env, c *Condition) string {
	pool := env.SymbolPool()
	switch c.Kind.Tag {
	case LetPre:
		return fmt.Sprintf("let %s = %s;", pool.String(c.Kind.Name), c.Exp.Display(env))
	case LetPost:
		return fmt.Sprintf("let post %s = %s;", pool.String(c.Kind.Name), c.Exp.Display(env))
	case Emits:
		exps := c.AllExps()
		if len(exps) < 2 {
			return fmt.Sprintf("emit %s;", c.Exp.Display(env))
		}
		s := fmt.Sprintf("emit %s to %s", exps[0].Display(env), exps[1].Display(env))
		if len(exps) > 2 {
			s += " if " + exps[2].Display(env)
		}
		return s + ";"
	case Update:
		if len(c.AdditionalExps) > 0 {
			return fmt.Sprintf("update %s = %s;", c.AdditionalExps[0].Display(env), c.Exp.Display(env))
		}
	}
	return fmt.Sprintf("%s %s;", c.Kind, c.Exp.Display(env))
}

// DisplaySpec renders a spec block for diagnostics.
func DisplaySpec(env Env, s *Spec) string {
	var b strings.Builder
	b.WriteString("spec {\n")
	for i := range s.Conditions {
		fmt.Fprintf(&b, "  %s\n", DisplayCondition(env, &s.Conditions[i]))
	}
	b.WriteString("}\n")
	return b.String()
}
