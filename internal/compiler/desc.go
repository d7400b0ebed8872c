// Package compiler turns program descriptions into a loaded program: a
// model.GlobalEnv with its declarations and specifications, and a
// pipeline.TargetsHolder with the code of every function variant.
//
// Descriptions are data. They are read from a directory of CUE files or
// from YAML, decoded into ProgramDesc, validated, and then compiled. Names
// are resolved in two passes so declarations may refer to each other in
// any order.
package compiler

// ProgramDesc describes a whole program.
type ProgramDesc struct {
	Modules []ModuleDesc `json:"modules" yaml:"modules"`
}

// ModuleDesc describes one module. Dependencies (Target false) contribute
// declarations but are not analyzed.
type ModuleDesc struct {
	Name       string          `json:"name" yaml:"name"`
	Address    string          `json:"address,omitempty" yaml:"address,omitempty"`
	Target     bool            `json:"target,omitempty" yaml:"target,omitempty"`
	Structs    []StructDesc    `json:"structs,omitempty" yaml:"structs,omitempty"`
	SpecFuns   []SpecFunDesc   `json:"spec_funs,omitempty" yaml:"spec_funs,omitempty"`
	Functions  []FunctionDesc  `json:"functions,omitempty" yaml:"functions,omitempty"`
	Invariants []ConditionDesc `json:"invariants,omitempty" yaml:"invariants,omitempty"`
}

// StructDesc describes a struct.
type StructDesc struct {
	Name       string          `json:"name" yaml:"name"`
	TypeParams int             `json:"type_params,omitempty" yaml:"type_params,omitempty"`
	Fields     []ParamDesc     `json:"fields,omitempty" yaml:"fields,omitempty"`
	Invariants []ConditionDesc `json:"invariants,omitempty" yaml:"invariants,omitempty"`
}

// ParamDesc is a name with a type string, used for fields, parameters and
// bound variables.
type ParamDesc struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// SpecFunDesc describes a specification function. Uses lists memory the
// function reads beyond its body, as memory names like "M::S<#0>".
type SpecFunDesc struct {
	Name          string      `json:"name" yaml:"name"`
	TypeParams    int         `json:"type_params,omitempty" yaml:"type_params,omitempty"`
	Params        []ParamDesc `json:"params,omitempty" yaml:"params,omitempty"`
	Result        string      `json:"result" yaml:"result"`
	Uses          []string    `json:"uses,omitempty" yaml:"uses,omitempty"`
	Uninterpreted bool        `json:"uninterpreted,omitempty" yaml:"uninterpreted,omitempty"`
	Native        bool        `json:"native,omitempty" yaml:"native,omitempty"`
	Body          *ExpDesc    `json:"body,omitempty" yaml:"body,omitempty"`
}

// FunctionDesc describes a bytecode function. Code maps variant names
// ("baseline", "verification") to instructions; a function without code is
// declared only. Locals are the types of the temporaries.
type FunctionDesc struct {
	Name                string                 `json:"name" yaml:"name"`
	TypeParams          int                    `json:"type_params,omitempty" yaml:"type_params,omitempty"`
	Params              []ParamDesc            `json:"params,omitempty" yaml:"params,omitempty"`
	Native              bool                   `json:"native,omitempty" yaml:"native,omitempty"`
	DelegatesInvariants bool                   `json:"delegates_invariants,omitempty" yaml:"delegates_invariants,omitempty"`
	Locals              []string               `json:"locals,omitempty" yaml:"locals,omitempty"`
	Spec                []ConditionDesc        `json:"spec,omitempty" yaml:"spec,omitempty"`
	Code                map[string][]InstrDesc `json:"code,omitempty" yaml:"code,omitempty"`
}

// ConditionDesc describes a specification condition. Name is the bound
// name of let conditions; TypeParams applies to module invariants and
// axioms.
type ConditionDesc struct {
	Kind       string    `json:"kind" yaml:"kind"`
	Name       string    `json:"name,omitempty" yaml:"name,omitempty"`
	TypeParams int       `json:"type_params,omitempty" yaml:"type_params,omitempty"`
	Exp        ExpDesc   `json:"exp" yaml:"exp"`
	Additional []ExpDesc `json:"additional,omitempty" yaml:"additional,omitempty"`
}

// InstrDesc describes one instruction. Op is a bytecode operation name or
// one of assign, ret, branch, jump, label, abort, nop, assert, assume,
// modifies. Which other fields apply depends on Op.
type InstrDesc struct {
	Op     string   `json:"op" yaml:"op"`
	Fun    string   `json:"fun,omitempty" yaml:"fun,omitempty"`
	Struct string   `json:"struct,omitempty" yaml:"struct,omitempty"`
	Inst   []string `json:"inst,omitempty" yaml:"inst,omitempty"`
	Root   string   `json:"root,omitempty" yaml:"root,omitempty"`
	Temp   int      `json:"temp,omitempty" yaml:"temp,omitempty"`
	Dest   int      `json:"dest,omitempty" yaml:"dest,omitempty"`
	Src    int      `json:"src,omitempty" yaml:"src,omitempty"`
	Label  int      `json:"label,omitempty" yaml:"label,omitempty"`
	Then   int      `json:"then,omitempty" yaml:"then,omitempty"`
	Else   int      `json:"else,omitempty" yaml:"else,omitempty"`
	Target int      `json:"target,omitempty" yaml:"target,omitempty"`
	Exp    *ExpDesc `json:"exp,omitempty" yaml:"exp,omitempty"`
}

// ExpDesc describes an expression. Exactly one of the leading fields
// selects the variant:
//
//	bool, num, address   constants
//	var                  a bound local, typed by its binder
//	temp                 a function temporary, typed by the function's locals
//	op                   an operation applied to args
//	quant                a quantifier over ranges with body and optional where
//	let                  a block binding names over body
//	if                   a conditional with then and else
//	invalid              an expression that failed to elaborate
//
// Mem names the memory of exists and global ("M::S<u64>"), Field the field
// of select and update_field ("M::S.f"), Fun the specification function of
// a function call. Label reads memory at a labelled state; Labels gives a
// function call one label per memory the callee uses.
type ExpDesc struct {
	Bool    *bool     `json:"bool,omitempty" yaml:"bool,omitempty"`
	Num     *int64    `json:"num,omitempty" yaml:"num,omitempty"`
	Address string    `json:"address,omitempty" yaml:"address,omitempty"`
	Var     string    `json:"var,omitempty" yaml:"var,omitempty"`
	Temp    *int      `json:"temp,omitempty" yaml:"temp,omitempty"`
	Op      string    `json:"op,omitempty" yaml:"op,omitempty"`
	Quant   string    `json:"quant,omitempty" yaml:"quant,omitempty"`
	Let     []LetDesc `json:"let,omitempty" yaml:"let,omitempty"`
	If      *ExpDesc  `json:"if,omitempty" yaml:"if,omitempty"`
	Invalid bool      `json:"invalid,omitempty" yaml:"invalid,omitempty"`

	Mem    string      `json:"mem,omitempty" yaml:"mem,omitempty"`
	Field  string      `json:"field,omitempty" yaml:"field,omitempty"`
	Fun    string      `json:"fun,omitempty" yaml:"fun,omitempty"`
	Inst   []string    `json:"inst,omitempty" yaml:"inst,omitempty"`
	Label  *int        `json:"label,omitempty" yaml:"label,omitempty"`
	Labels []int       `json:"labels,omitempty" yaml:"labels,omitempty"`
	Index  int         `json:"index,omitempty" yaml:"index,omitempty"`
	Args   []ExpDesc   `json:"args,omitempty" yaml:"args,omitempty"`
	Ranges []RangeDesc `json:"ranges,omitempty" yaml:"ranges,omitempty"`
	Where  *ExpDesc    `json:"where,omitempty" yaml:"where,omitempty"`
	Body   *ExpDesc    `json:"body,omitempty" yaml:"body,omitempty"`
	Then   *ExpDesc    `json:"then,omitempty" yaml:"then,omitempty"`
	Else   *ExpDesc    `json:"else,omitempty" yaml:"else,omitempty"`
	Type   string      `json:"type,omitempty" yaml:"type,omitempty"`
}

// LetDesc binds a name in a let block.
type LetDesc struct {
	Name string  `json:"name" yaml:"name"`
	Type string  `json:"type" yaml:"type"`
	Bind ExpDesc `json:"bind" yaml:"bind"`
}

// RangeDesc binds a quantified variable. Without Domain the variable
// ranges over its type.
type RangeDesc struct {
	Name   string   `json:"name" yaml:"name"`
	Type   string   `json:"type" yaml:"type"`
	Domain *ExpDesc `json:"domain,omitempty" yaml:"domain,omitempty"`
}
