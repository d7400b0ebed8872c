package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/model"
	"github.com/roach88/specflow/internal/pipeline"
)

// Resolution error codes (E200-E299)
const (
	ErrUnresolved = "E201" // name does not resolve to a declaration
	ErrBadType    = "E202" // type string does not parse
	ErrBadExp     = "E203" // malformed expression
	ErrBadInstr   = "E204" // malformed instruction
	ErrSpecFunUse = "E205" // spec fun used memory does not converge
)

// Program is a compiled program description.
type Program struct {
	Env    *model.GlobalEnv
	Holder *pipeline.TargetsHolder
}

// Compile validates and compiles a program description. Validation errors
// are returned joined; resolution stops at the first error.
func Compile(src *Source) (*Program, error) {
	if verrs := Validate(&src.Program); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, errors.Join(errs...)
	}

	c := &compiler{
		src:     src,
		env:     model.NewGlobalEnv(),
		holder:  pipeline.NewTargetsHolder(),
		modules: make(map[string]*model.ModuleData),
	}
	for _, pass := range []func() error{c.declare, c.signatures, c.bodies} {
		if err := pass(); err != nil {
			return nil, err
		}
	}
	if err := c.env.ComputeSpecFunUsage(); err != nil {
		var nc *model.SpecFunUsageError
		if errors.As(err, &nc) {
			return nil, c.errorf(ErrSpecFunUse, "spec_funs", "%v", err)
		}
		return nil, err
	}
	for _, call := range c.labelled {
		if n := len(call.fun.UsedMemory); n != call.labels {
			return nil, c.errorf(ErrBadExp, call.path, "%s uses %d memories, got %d labels",
				c.env.SymbolPool().String(call.fun.Name), n, call.labels)
		}
	}
	for _, md := range c.src.Program.Modules {
		m := c.modules[md.Name]
		for k := range m.Spec.Conditions {
			c.registerInvariant(m, &m.Spec.Conditions[k])
		}
	}

	slog.Debug("program compiled", "source", src.Name, "env", c.env.Describe(), "targets", c.holder.Len())
	return &Program{Env: c.env, Holder: c.holder}, nil
}

type compiler struct {
	src     *Source
	env     *model.GlobalEnv
	holder  *pipeline.TargetsHolder
	modules map[string]*model.ModuleData

	labelled []labelledCall
}

// labelledCall is a spec fun call with one label per used memory, checked
// once used memory is complete.
type labelledCall struct {
	path   string
	fun    *model.SpecFunData
	labels int
}

func (c *compiler) errorf(code, field, format string, args ...any) error {
	return &CompileError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

func parseAddress(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid address %q", s)
	}
	return n, nil
}

// declare registers every module and declaration without types.
func (c *compiler) declare() error {
	for _, md := range c.src.Program.Modules {
		var addr *big.Int
		if md.Address != "" {
			addr, _ = parseAddress(md.Address)
		}
		m := c.env.AddModule(addr, md.Name, md.Target)
		c.modules[md.Name] = m
		for _, s := range md.Structs {
			m.AddStruct(s.Name, s.TypeParams)
		}
		for _, f := range md.SpecFuns {
			m.AddSpecFun(f.Name, f.TypeParams, nil)
		}
		for _, f := range md.Functions {
			decl := m.AddFunction(f.Name, f.TypeParams)
			decl.IsNative = f.Native
			decl.DelegatesInvariants = f.DelegatesInvariants
		}
	}
	return nil
}

// signatures resolves field, parameter and result types.
func (c *compiler) signatures() error {
	for i, md := range c.src.Program.Modules {
		m := c.modules[md.Name]
		path := fmt.Sprintf("modules[%d]", i)
		for j, sd := range md.Structs {
			s := m.Structs[j]
			for k, fd := range sd.Fields {
				ty, err := c.parseType(m, fmt.Sprintf("%s.structs[%d].fields[%d].type", path, j, k), fd.Type)
				if err != nil {
					return err
				}
				field := m.Field(fd.Name, ty)
				field.ID = ir.FieldID(k)
				s.Fields = append(s.Fields, field)
			}
		}
		for j, fd := range md.SpecFuns {
			f := m.SpecFuns[j]
			fp := fmt.Sprintf("%s.spec_funs[%d]", path, j)
			var err error
			if f.Params, err = c.params(m, fp+".params", fd.Params); err != nil {
				return err
			}
			if f.Result, err = c.parseType(m, fp+".result", fd.Result); err != nil {
				return err
			}
			for k, u := range fd.Uses {
				mem, err := ParseMemory(u, c.resolver(m))
				if err != nil {
					return c.errorf(ErrBadType, fmt.Sprintf("%s.uses[%d]", fp, k), "%v", err)
				}
				f.UsedMemory = append(f.UsedMemory, mem)
			}
			f.Uninterpreted = fd.Uninterpreted
			f.IsNative = fd.Native
		}
		for j, fd := range md.Functions {
			var err error
			f := m.Functions[j]
			if f.Params, err = c.params(m, fmt.Sprintf("%s.functions[%d].params", path, j), fd.Params); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *compiler) params(m *model.ModuleData, path string, ps []ParamDesc) ([]ir.TypedSymbol, error) {
	out := make([]ir.TypedSymbol, len(ps))
	for i, p := range ps {
		ty, err := c.parseType(m, fmt.Sprintf("%s[%d].type", path, i), p.Type)
		if err != nil {
			return nil, err
		}
		out[i] = ir.TypedSymbol{Name: c.env.Symbol(p.Name), Type: ty}
	}
	return out, nil
}

// bodies compiles specification function bodies, conditions and code.
func (c *compiler) bodies() error {
	for i, md := range c.src.Program.Modules {
		m := c.modules[md.Name]
		path := fmt.Sprintf("modules[%d]", i)

		for j, fd := range md.SpecFuns {
			if fd.Body == nil {
				continue
			}
			f := m.SpecFuns[j]
			x := c.newExpCompiler(m, nil)
			x.specFun = true
			for _, p := range f.Params {
				x.bind(c.env.SymbolPool().String(p.Name), p.Type)
			}
			body, err := x.compile(fmt.Sprintf("%s.spec_funs[%d].body", path, j), fd.Body)
			if err != nil {
				return err
			}
			f.Body = body
		}

		for j, sd := range md.Structs {
			conds, err := c.conditions(m, nil, fmt.Sprintf("%s.structs[%d].invariants", path, j), sd.Invariants)
			if err != nil {
				return err
			}
			m.Structs[j].Spec.Conditions = conds
		}

		for j, fd := range md.Functions {
			if err := c.function(m, m.Functions[j], fmt.Sprintf("%s.functions[%d]", path, j), &fd); err != nil {
				return err
			}
		}

		conds, err := c.conditions(m, nil, path+".invariants", md.Invariants)
		if err != nil {
			return err
		}
		m.Spec.Conditions = conds
	}
	return nil
}

func (c *compiler) function(m *model.ModuleData, decl *model.FunDecl, path string, fd *FunctionDesc) error {
	locals := make([]ir.Type, len(fd.Locals))
	for i, l := range fd.Locals {
		ty, err := c.parseType(m, fmt.Sprintf("%s.locals[%d]", path, i), l)
		if err != nil {
			return err
		}
		locals[i] = ty
	}

	conds, err := c.conditions(m, locals, path+".spec", fd.Spec)
	if err != nil {
		return err
	}
	decl.Spec.Conditions = conds

	fun := m.FunctionID(decl.ID)
	for _, name := range sortedVariants(fd.Code) {
		variant, _ := pipeline.ParseVariant(name)
		code, err := c.code(m, locals, fmt.Sprintf("%s.code.%s", path, name), fd.Code[name])
		if err != nil {
			return err
		}
		c.holder.AddTarget(fun, pipeline.NewFunctionData(variant, code, locals))
	}
	return nil
}

func (c *compiler) conditions(m *model.ModuleData, locals []ir.Type, path string, cds []ConditionDesc) ([]ir.Condition, error) {
	out := make([]ir.Condition, 0, len(cds))
	for i, cd := range cds {
		cp := fmt.Sprintf("%s[%d]", path, i)
		tag, _ := ir.ParseConditionTag(cd.Kind)
		kind := ir.Kind(tag)
		if cd.Name != "" {
			kind.Name = c.env.Symbol(cd.Name)
		}
		for k := 0; k < cd.TypeParams; k++ {
			kind.TypeParams = append(kind.TypeParams, c.env.Symbol(fmt.Sprintf("T%d", k)))
		}

		x := c.newExpCompiler(m, locals)
		exp, err := x.compile(cp+".exp", &cd.Exp)
		if err != nil {
			return nil, err
		}
		cond := ir.Condition{
			Loc:  ir.Loc{File: c.src.Name, Line: i + 1},
			Kind: kind,
			Exp:  exp,
		}
		for k := range cd.Additional {
			e, err := x.compile(fmt.Sprintf("%s.additional[%d]", cp, k), &cd.Additional[k])
			if err != nil {
				return nil, err
			}
			cond.AdditionalExps = append(cond.AdditionalExps, e)
		}
		out = append(out, cond)
	}
	return out, nil
}

// registerInvariant records module invariants over global memory with the
// environment. It runs once spec fun used memory is complete.
func (c *compiler) registerInvariant(m *model.ModuleData, cond *ir.Condition) {
	if cond.Kind.Tag != ir.GlobalInvariant && cond.Kind.Tag != ir.GlobalInvariantUpdate {
		return
	}
	var mems []ir.QualifiedInstID[ir.StructID]
	for _, use := range cond.Exp.UsedMemory(c.env) {
		mems = append(mems, use.Memory)
	}
	c.env.AddGlobalInvariant(&ir.GlobalInvariantInfo{
		Loc:         cond.Loc,
		Kind:        cond.Kind,
		DeclaringIn: m.ID,
		Mem:         mems,
		Cond:        cond.Exp,
	})
}

func (c *compiler) parseType(m *model.ModuleData, field, s string) (ir.Type, error) {
	ty, err := ParseType(s, c.resolver(m))
	if err != nil {
		return nil, c.errorf(ErrBadType, field, "%v", err)
	}
	return ty, nil
}

// resolver resolves struct names, unqualified ones in m.
func (c *compiler) resolver(m *model.ModuleData) StructResolver {
	return func(module, name string) (ir.ModuleID, ir.StructID, int, error) {
		target, err := c.module(m, module)
		if err != nil {
			return 0, 0, 0, err
		}
		s, ok := target.FindStruct(name)
		if !ok {
			return 0, 0, 0, fmt.Errorf("unknown struct %s::%s", target.NameString(), name)
		}
		return target.ID, s.ID, s.TypeParams, nil
	}
}

func (c *compiler) module(current *model.ModuleData, name string) (*model.ModuleData, error) {
	if name == "" {
		return current, nil
	}
	m, ok := c.modules[name]
	if !ok {
		return nil, fmt.Errorf("unknown module %s", name)
	}
	return m, nil
}

// splitName splits "M::x" into module and name; module is empty for "x".
func splitName(s string) (module, name string) {
	if i := strings.LastIndex(s, "::"); i >= 0 {
		return s[:i], s[i+2:]
	}
	return "", s
}

// fieldName splits "M::S.f" into struct and field names.
func fieldName(s string) (structName, field string, ok bool) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func indexPath(path string, i int) string { return fmt.Sprintf("%s[%d]", path, i) }
