package compiler

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/roach88/specflow/internal/bytecode"
	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/pipeline"
)

// Validation error codes (E100-E199)
const (
	ErrModuleName       = "E101" // missing or malformed module name
	ErrDuplicateName    = "E102" // duplicate declaration name
	ErrUnknownCondition = "E103" // unknown condition kind
	ErrPlacement        = "E104" // condition kind not allowed where it appears
	ErrUnknownVariant   = "E105" // unknown code variant
	ErrUnknownOp        = "E106" // unknown instruction op
	ErrBadLabel         = "E107" // undefined or duplicate label
	ErrUpdateTarget     = "E108" // update condition without target
	ErrLetName          = "E109" // let condition without name
	ErrTypeParams       = "E110" // negative type parameter count
	ErrMissingExp       = "E111" // property instruction without expression
	ErrBadAddress       = "E112" // malformed module address
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Validate checks the structure of a program description without resolving
// names. All errors are returned, in description order.
func Validate(p *ProgramDesc) []ValidationError {
	v := &validator{}
	modules := make(map[string]bool)
	for i := range p.Modules {
		m := &p.Modules[i]
		path := fmt.Sprintf("modules[%d]", i)
		if !identPattern.MatchString(m.Name) {
			v.add(path+".name", ErrModuleName, "invalid module name %q", m.Name)
		} else if modules[m.Name] {
			v.add(path+".name", ErrDuplicateName, "duplicate module %q", m.Name)
		}
		modules[m.Name] = true
		if m.Address != "" {
			if _, err := parseAddress(m.Address); err != nil {
				v.add(path+".address", ErrBadAddress, "%v", err)
			}
		}
		v.module(path, m)
	}
	return v.errs
}

type validator struct {
	errs []ValidationError
}

func (v *validator) add(field, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) names(path, what string, names []string) {
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		field := fmt.Sprintf("%s[%d].name", path, i)
		if !identPattern.MatchString(n) {
			v.add(field, ErrDuplicateName, "invalid %s name %q", what, n)
		} else if seen[n] {
			v.add(field, ErrDuplicateName, "duplicate %s %q", what, n)
		}
		seen[n] = true
	}
}

func (v *validator) module(path string, m *ModuleDesc) {
	structNames := make([]string, len(m.Structs))
	for i, s := range m.Structs {
		structNames[i] = s.Name
		sp := fmt.Sprintf("%s.structs[%d]", path, i)
		v.typeParams(sp, s.TypeParams)
		fieldNames := make([]string, len(s.Fields))
		for j, f := range s.Fields {
			fieldNames[j] = f.Name
		}
		v.names(sp+".fields", "field", fieldNames)
		v.conditions(sp+".invariants", s.Invariants, "struct", ir.ConditionKind.AllowedOnStruct)
	}
	v.names(path+".structs", "struct", structNames)

	specFunNames := make([]string, len(m.SpecFuns))
	for i, f := range m.SpecFuns {
		specFunNames[i] = f.Name
		v.typeParams(fmt.Sprintf("%s.spec_funs[%d]", path, i), f.TypeParams)
	}
	v.names(path+".spec_funs", "spec fun", specFunNames)

	funNames := make([]string, len(m.Functions))
	for i := range m.Functions {
		f := &m.Functions[i]
		funNames[i] = f.Name
		fp := fmt.Sprintf("%s.functions[%d]", path, i)
		v.typeParams(fp, f.TypeParams)
		v.conditions(fp+".spec", f.Spec, "function declaration", ir.ConditionKind.AllowedOnFunDecl)
		for _, variant := range sortedVariants(f.Code) {
			cp := fmt.Sprintf("%s.code.%s", fp, variant)
			if _, err := pipeline.ParseVariant(variant); err != nil {
				v.add(cp, ErrUnknownVariant, "%v", err)
			}
			v.code(cp, f.Code[variant])
		}
	}
	v.names(path+".functions", "function", funNames)

	v.conditions(path+".invariants", m.Invariants, "module", ir.ConditionKind.AllowedOnModule)
}

func (v *validator) typeParams(path string, n int) {
	if n < 0 {
		v.add(path+".type_params", ErrTypeParams, "negative type parameter count %d", n)
	}
}

func (v *validator) conditions(path string, conds []ConditionDesc, placement string, allowed func(ir.ConditionKind) bool) {
	for i, c := range conds {
		cp := fmt.Sprintf("%s[%d]", path, i)
		tag, ok := ir.ParseConditionTag(c.Kind)
		if !ok {
			v.add(cp+".kind", ErrUnknownCondition, "unknown condition kind %q", c.Kind)
			continue
		}
		if !allowed(ir.Kind(tag)) {
			v.add(cp+".kind", ErrPlacement, "%s is not allowed on a %s", c.Kind, placement)
		}
		if tag == ir.Update && len(c.Additional) == 0 {
			v.add(cp+".additional", ErrUpdateTarget, "update condition needs a target expression")
		}
		if (tag == ir.LetPost || tag == ir.LetPre) && c.Name == "" {
			v.add(cp+".name", ErrLetName, "%s condition needs a name", c.Kind)
		}
		v.typeParams(cp, c.TypeParams)
	}
}

var controlOps = []string{"assign", "ret", "branch", "jump", "label", "abort", "nop", "assert", "assume", "modifies"}

func (v *validator) code(path string, code []InstrDesc) {
	labels := make(map[int]bool)
	for i, instr := range code {
		if instr.Op == "label" {
			if labels[instr.Label] {
				v.add(fmt.Sprintf("%s[%d].label", path, i), ErrBadLabel, "duplicate label %d", instr.Label)
			}
			labels[instr.Label] = true
		}
	}
	for i, instr := range code {
		ip := fmt.Sprintf("%s[%d]", path, i)
		if _, ok := bytecode.ParseOpKind(instr.Op); !ok && !slices.Contains(controlOps, instr.Op) {
			v.add(ip+".op", ErrUnknownOp, "unknown op %q", instr.Op)
			continue
		}
		switch instr.Op {
		case "jump":
			if !labels[instr.Target] {
				v.add(ip+".target", ErrBadLabel, "undefined label %d", instr.Target)
			}
		case "branch":
			for _, l := range []int{instr.Then, instr.Else} {
				if !labels[l] {
					v.add(ip, ErrBadLabel, "undefined label %d", l)
				}
			}
		case "assert", "assume", "modifies":
			if instr.Exp == nil {
				v.add(ip+".exp", ErrMissingExp, "%s needs an expression", instr.Op)
			}
		}
	}
}

func sortedVariants(code map[string][]InstrDesc) []string {
	out := make([]string, 0, len(code))
	for k := range code {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
