package ir

import (
	"fmt"
	"strings"
)

// Type is the closed set of types attached to expression nodes.
//
// Key is injective over types and is what equality and set membership use.
// String is a readable form that does not need an Env; struct names are
// rendered by the model.
type Type interface {
	Key() string
	String() string
	isType()
}

// PrimitiveType enumerates the built-in scalar types.
type PrimitiveType uint8

const (
	BoolType PrimitiveType = iota
	U8Type
	U64Type
	U128Type
	NumType
	AddressType
	SignerType
	RangeType
	TypeValueType
	EventStoreType
)

var primitiveNames = [...]string{
	BoolType:       "bool",
	U8Type:         "u8",
	U64Type:        "u64",
	U128Type:       "u128",
	NumType:        "num",
	AddressType:    "address",
	SignerType:     "signer",
	RangeType:      "range",
	TypeValueType:  "type",
	EventStoreType: "eventstore",
}

// ParsePrimitive maps a primitive type name back to its value.
func ParsePrimitive(name string) (PrimitiveType, bool) {
	for i, n := range primitiveNames {
		if n == name {
			return PrimitiveType(i), true
		}
	}
	return 0, false
}

func (p PrimitiveType) Key() string    { return p.String() }
func (p PrimitiveType) String() string { return primitiveNames[p] }
func (PrimitiveType) isType()          {}

// VectorType is vector<Elem>.
type VectorType struct {
	Elem Type
}

func (v VectorType) Key() string    { return "vector<" + v.Elem.Key() + ">" }
func (v VectorType) String() string { return "vector<" + v.Elem.String() + ">" }
func (VectorType) isType()          {}

// StructType is an instantiated struct.
type StructType struct {
	Module ModuleID
	Struct StructID
	Args   []Type
}

func (s StructType) Key() string {
	return fmt.Sprintf("struct(%d.%d)%s", s.Module, s.Struct, argKeys(s.Args))
}

func (s StructType) String() string {
	return fmt.Sprintf("struct(%d.%d)%s", s.Module, s.Struct, argStrings(s.Args))
}

func (StructType) isType() {}

// QualifiedInstID returns the memory identity of the struct.
func (s StructType) QualifiedInstID() QualifiedInstID[StructID] {
	return QualifiedInstID[StructID]{Module: s.Module, ID: s.Struct, Inst: s.Args}
}

// ReferenceType is &Inner or &mut Inner.
type ReferenceType struct {
	Mutable bool
	Inner   Type
}

func (r ReferenceType) Key() string {
	if r.Mutable {
		return "&mut " + r.Inner.Key()
	}
	return "&" + r.Inner.Key()
}

func (r ReferenceType) String() string {
	if r.Mutable {
		return "&mut " + r.Inner.String()
	}
	return "&" + r.Inner.String()
}

func (ReferenceType) isType() {}

// TypeParameter is a positional generic parameter.
type TypeParameter uint16

func (t TypeParameter) Key() string    { return fmt.Sprintf("#%d", uint16(t)) }
func (t TypeParameter) String() string { return t.Key() }
func (TypeParameter) isType()          {}

// TupleType groups several types.
type TupleType struct {
	Elems []Type
}

func (t TupleType) Key() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.Key()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func (t TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (TupleType) isType() {}

// ErrorType marks a type that could not be determined.
type ErrorType struct{}

func (ErrorType) Key() string    { return "*error*" }
func (ErrorType) String() string { return "*error*" }
func (ErrorType) isType()        {}

// TypesEqual compares two types structurally.
func TypesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// Instantiate substitutes type parameters in t with targs.
// Parameters without a corresponding argument are left in place.
func Instantiate(t Type, targs []Type) Type {
	if len(targs) == 0 || t == nil {
		return t
	}
	switch ty := t.(type) {
	case TypeParameter:
		if int(ty) < len(targs) {
			return targs[ty]
		}
		return ty
	case VectorType:
		return VectorType{Elem: Instantiate(ty.Elem, targs)}
	case StructType:
		return StructType{Module: ty.Module, Struct: ty.Struct, Args: InstantiateVec(ty.Args, targs)}
	case ReferenceType:
		return ReferenceType{Mutable: ty.Mutable, Inner: Instantiate(ty.Inner, targs)}
	case TupleType:
		return TupleType{Elems: InstantiateVec(ty.Elems, targs)}
	default:
		return t
	}
}

// InstantiateVec instantiates every type in ts.
func InstantiateVec(ts []Type, targs []Type) []Type {
	if ts == nil {
		return nil
	}
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = Instantiate(t, targs)
	}
	return out
}

// TypeDepth is the nesting depth of t: 1 for primitives and parameters, one
// more than the deepest argument for constructed types.
func TypeDepth(t Type) int {
	switch ty := t.(type) {
	case VectorType:
		return 1 + TypeDepth(ty.Elem)
	case StructType:
		return 1 + maxTypeDepth(ty.Args)
	case ReferenceType:
		return 1 + TypeDepth(ty.Inner)
	case TupleType:
		return 1 + maxTypeDepth(ty.Elems)
	}
	return 1
}

func maxTypeDepth(ts []Type) int {
	d := 0
	for _, t := range ts {
		d = max(d, TypeDepth(t))
	}
	return d
}

// IsMutableReference reports whether t is &mut _.
func IsMutableReference(t Type) bool {
	r, ok := t.(ReferenceType)
	return ok && r.Mutable
}

// RequireStruct returns the struct behind t. A non-struct type here is an
// internal invariant violation.
func RequireStruct(t Type) StructType {
	s, ok := t.(StructType)
	if !ok {
		violate(CodeNotAStruct, "expected struct type, got %v", t)
	}
	return s
}

func argKeys(args []Type) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Key()
	}
	return "<" + strings.Join(parts, ",") + ">"
}

func argStrings(args []Type) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "<" + strings.Join(parts, ", ") + ">"
}
