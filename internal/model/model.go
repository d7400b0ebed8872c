// Package model is the in-memory program database: modules with their
// structs, specification functions and functions, and the attribute tables
// of expression nodes. GlobalEnv implements ir.Env.
package model

import (
	"github.com/roach88/specflow/internal/ir"
)

// ModuleData is one module of the program.
type ModuleData struct {
	ID   ir.ModuleID
	Name ir.ModuleName

	// IsTarget marks modules whose functions are analyzed and reported.
	// Dependencies are loaded for their declarations only.
	IsTarget bool

	Structs   []*StructData
	SpecFuns  []*SpecFunData
	Functions []*FunDecl
	Spec      ir.Spec

	env *GlobalEnv
}

// StructData is a struct declaration.
type StructData struct {
	ID         ir.StructID
	Name       ir.Symbol
	TypeParams int
	Fields     []FieldData
	Spec       ir.Spec
}

// FieldData is a struct field.
type FieldData struct {
	ID   ir.FieldID
	Name ir.Symbol
	Type ir.Type
}

// SpecFunData is a specification function.
type SpecFunData struct {
	ID         ir.SpecFunID
	Name       ir.Symbol
	TypeParams int
	Params     []ir.TypedSymbol
	Result     ir.Type

	// UsedMemory is the global memory the function reads, in terms of its
	// own type parameters. Declared memory is extended with the memory of
	// the body by GlobalEnv.ComputeSpecFunUsage.
	UsedMemory []ir.QualifiedInstID[ir.StructID]

	Uninterpreted bool
	IsNative      bool
	Body          ir.Exp
}

// FunDecl is a bytecode function declaration.
type FunDecl struct {
	ID         ir.FunID
	Name       ir.Symbol
	TypeParams int
	Params     []ir.TypedSymbol
	IsNative   bool

	// DelegatesInvariants is the verification analysis' verdict that the
	// function's callers check global invariants on its behalf.
	DelegatesInvariants bool

	Spec ir.Spec
}

// FunctionID returns the module qualified id of fid.
func (m *ModuleData) FunctionID(fid ir.FunID) ir.QualifiedID[ir.FunID] {
	return ir.Qualify(m.ID, fid)
}

// NameString returns the module name.
func (m *ModuleData) NameString() string {
	return m.env.symbols.String(m.Name.Name)
}

// AddStruct declares a struct and returns it.
func (m *ModuleData) AddStruct(name string, typeParams int, fields ...FieldData) *StructData {
	s := &StructData{
		ID:         ir.StructID(len(m.Structs)),
		Name:       m.env.symbols.Make(name),
		TypeParams: typeParams,
		Fields:     fields,
	}
	for i := range s.Fields {
		s.Fields[i].ID = ir.FieldID(i)
	}
	m.Structs = append(m.Structs, s)
	return s
}

// Field builds a FieldData for AddStruct.
func (m *ModuleData) Field(name string, ty ir.Type) FieldData {
	return FieldData{Name: m.env.symbols.Make(name), Type: ty}
}

// AddSpecFun declares a specification function and returns it.
func (m *ModuleData) AddSpecFun(name string, typeParams int, result ir.Type) *SpecFunData {
	f := &SpecFunData{
		ID:         ir.SpecFunID(len(m.SpecFuns)),
		Name:       m.env.symbols.Make(name),
		TypeParams: typeParams,
		Result:     result,
	}
	m.SpecFuns = append(m.SpecFuns, f)
	return f
}

// AddFunction declares a function and returns it.
func (m *ModuleData) AddFunction(name string, typeParams int) *FunDecl {
	f := &FunDecl{
		ID:         ir.FunID(len(m.Functions)),
		Name:       m.env.symbols.Make(name),
		TypeParams: typeParams,
	}
	m.Functions = append(m.Functions, f)
	return f
}

// FindStruct looks a struct up by name.
func (m *ModuleData) FindStruct(name string) (*StructData, bool) {
	for _, s := range m.Structs {
		if m.env.symbols.String(s.Name) == name {
			return s, true
		}
	}
	return nil, false
}

// FindSpecFun looks a specification function up by name.
func (m *ModuleData) FindSpecFun(name string) (*SpecFunData, bool) {
	for _, f := range m.SpecFuns {
		if m.env.symbols.String(f.Name) == name {
			return f, true
		}
	}
	return nil, false
}

// FindFunction looks a function up by name.
func (m *ModuleData) FindFunction(name string) (*FunDecl, bool) {
	for _, f := range m.Functions {
		if m.env.symbols.String(f.Name) == name {
			return f, true
		}
	}
	return nil, false
}

// FindField looks a field of s up by name.
func (m *ModuleData) FindField(s *StructData, name string) (FieldData, bool) {
	for _, f := range s.Fields {
		if m.env.symbols.String(f.Name) == name {
			return f, true
		}
	}
	return FieldData{}, false
}

// StructType returns the type of s instantiated with args.
func (m *ModuleData) StructType(s *StructData, args ...ir.Type) ir.StructType {
	return ir.StructType{Module: m.ID, Struct: s.ID, Args: args}
}
