package ir

import (
	"fmt"
	"slices"
	"strings"
)

// ConditionTag enumerates the kinds of specification conditions.
type ConditionTag uint8

const (
	LetPost ConditionTag = iota
	LetPre
	Assert
	Assume
	Decreases
	AbortsIf
	AbortsWith
	SucceedsIf
	Modifies
	Emits
	Ensures
	Requires
	StructInvariant
	FunctionInvariant
	LoopInvariant
	GlobalInvariant
	GlobalInvariantUpdate
	SchemaInvariant
	Axiom
	Update
)

var conditionNames = [...]string{
	LetPost:               "let_post",
	LetPre:                "let_pre",
	Assert:                "assert",
	Assume:                "assume",
	Decreases:             "decreases",
	AbortsIf:              "aborts_if",
	AbortsWith:            "aborts_with",
	SucceedsIf:            "succeeds_if",
	Modifies:              "modifies",
	Emits:                 "emits",
	Ensures:               "ensures",
	Requires:              "requires",
	StructInvariant:       "struct_invariant",
	FunctionInvariant:     "function_invariant",
	LoopInvariant:         "loop_invariant",
	GlobalInvariant:       "global_invariant",
	GlobalInvariantUpdate: "global_invariant_update",
	SchemaInvariant:       "schema_invariant",
	Axiom:                 "axiom",
	Update:                "update",
}

// Name is the identifier used in program descriptions.
func (t ConditionTag) Name() string { return conditionNames[t] }

// ParseConditionTag maps a description name back to its tag.
func ParseConditionTag(name string) (ConditionTag, bool) {
	for i, n := range conditionNames {
		if n == name {
			return ConditionTag(i), true
		}
	}
	return 0, false
}

// ConditionKind is a condition tag with its payload: the bound name for
// LetPost and LetPre, the type parameters for GlobalInvariant,
// GlobalInvariantUpdate and Axiom.
type ConditionKind struct {
	Tag        ConditionTag
	Name       Symbol
	TypeParams []Symbol
}

// Kind builds a ConditionKind without payload.
func Kind(tag ConditionTag) ConditionKind { return ConditionKind{Tag: tag} }

// Equal compares tag and payload.
func (k ConditionKind) Equal(o ConditionKind) bool {
	return k.Tag == o.Tag && k.Name == o.Name && slices.Equal(k.TypeParams, o.TypeParams)
}

// AllowsOld reports whether old(..) may appear in the condition.
func (k ConditionKind) AllowsOld() bool {
	switch k.Tag {
	case LetPost, Assert, Assume, Emits, Ensures, LoopInvariant, GlobalInvariantUpdate:
		return true
	}
	return false
}

// AllowedOnFunDecl reports whether the condition may appear on a function
// declaration.
func (k ConditionKind) AllowedOnFunDecl() bool {
	switch k.Tag {
	case Requires, AbortsIf, AbortsWith, SucceedsIf, Emits, Ensures, Modifies,
		FunctionInvariant, LetPost, LetPre, Update:
		return true
	}
	return false
}

// AllowedOnFunImpl reports whether the condition may appear inside a
// function body.
func (k ConditionKind) AllowedOnFunImpl() bool {
	switch k.Tag {
	case Assert, Assume, Decreases, LoopInvariant, LetPost, LetPre:
		return true
	}
	return false
}

// AllowedOnStruct reports whether the condition may appear on a struct.
func (k ConditionKind) AllowedOnStruct() bool { return k.Tag == StructInvariant }

// AllowedOnModule reports whether the condition may appear on a module.
func (k ConditionKind) AllowedOnModule() bool {
	switch k.Tag {
	case GlobalInvariant, GlobalInvariantUpdate, Axiom:
		return true
	}
	return false
}

func (k ConditionKind) String() string {
	switch k.Tag {
	case LetPost:
		return fmt.Sprintf("let(%d)", uint32(k.Name))
	case LetPre:
		return fmt.Sprintf("let old(%d)", uint32(k.Name))
	case StructInvariant, FunctionInvariant, LoopInvariant, SchemaInvariant:
		return "invariant"
	case GlobalInvariant:
		return "invariant" + typeParamList(k.TypeParams)
	case GlobalInvariantUpdate:
		return "invariant" + typeParamList(k.TypeParams) + " update"
	case Axiom:
		return "axiom" + typeParamList(k.TypeParams)
	default:
		return conditionNames[k.Tag]
	}
}

func typeParamList(params []Symbol) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i := range params {
		parts[i] = fmt.Sprintf("#%d", i)
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// QuantKind distinguishes quantifiers from choice operators.
type QuantKind uint8

const (
	Forall QuantKind = iota
	Exists
	Choose
	ChooseMin
)

// IsChoice reports whether the quantifier selects a value.
func (q QuantKind) IsChoice() bool { return q == Choose || q == ChooseMin }

func (q QuantKind) String() string {
	switch q {
	case Forall:
		return "forall"
	case Exists:
		return "exists"
	case Choose:
		return "choose"
	case ChooseMin:
		return "choose min"
	}
	return fmt.Sprintf("quant(%d)", uint8(q))
}

// ParseQuantKind maps a quantifier name back to its kind.
func ParseQuantKind(name string) (QuantKind, bool) {
	for q := Forall; q <= ChooseMin; q++ {
		if q.String() == name || strings.ReplaceAll(q.String(), " ", "_") == name {
			return q, true
		}
	}
	return 0, false
}

// PropertyValue is the value of a pragma property: exactly one of the
// fields is set.
type PropertyValue struct {
	Value     Value
	Symbol    *Symbol
	Qualified []Symbol
}

// PropertyBag holds pragma properties.
type PropertyBag map[Symbol]PropertyValue

// Condition is one specification clause.
type Condition struct {
	Loc            Loc
	Kind           ConditionKind
	Properties     PropertyBag
	Exp            Exp
	AdditionalExps []Exp
}

// AllExps returns the primary expression followed by the additional ones.
func (c *Condition) AllExps() []Exp {
	return append([]Exp{c.Exp}, c.AdditionalExps...)
}

// Spec is the specification attached to a declaration. OnImpl holds the
// specs attached to individual code offsets of a function body.
type Spec struct {
	Loc        Loc
	Conditions []Condition
	Properties PropertyBag
	OnImpl     map[CodeOffset]*Spec
}

// HasConditions reports whether the spec has at least one condition.
func (s *Spec) HasConditions() bool { return s != nil && len(s.Conditions) > 0 }

// Filter returns the conditions satisfying pred, in order.
func (s *Spec) Filter(pred func(c *Condition) bool) []*Condition {
	if s == nil {
		return nil
	}
	var out []*Condition
	for i := range s.Conditions {
		if pred(&s.Conditions[i]) {
			out = append(out, &s.Conditions[i])
		}
	}
	return out
}

// FilterKind returns the conditions of the given kind.
func (s *Spec) FilterKind(kind ConditionKind) []*Condition {
	return s.Filter(func(c *Condition) bool { return c.Kind.Equal(kind) })
}

// Any reports whether some condition satisfies pred.
func (s *Spec) Any(pred func(c *Condition) bool) bool {
	return len(s.Filter(pred)) > 0
}

// AnyKind reports whether some condition has the given kind.
func (s *Spec) AnyKind(kind ConditionKind) bool {
	return len(s.FilterKind(kind)) > 0
}

// GlobalInvariantInfo is a module level invariant over global memory.
type GlobalInvariantInfo struct {
	ID          GlobalID
	Loc         Loc
	Kind        ConditionKind
	DeclaringIn ModuleID
	Mem         []QualifiedInstID[StructID]
	Cond        Exp
}
