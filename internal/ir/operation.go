package ir

import (
	"fmt"
	"strings"
)

// OpKind tags the operation applied by a Call expression.
type OpKind uint8

const (
	OpFunction OpKind = iota
	OpPack
	OpTuple
	OpSelect
	OpUpdateField
	OpResult
	OpIndex
	OpSlice
	OpRange
	OpAdd
	OpSub
	OpMul
	OpMod
	OpDiv
	OpBitOr
	OpBitAnd
	OpXor
	OpShl
	OpShr
	OpImplies
	OpIff
	OpAnd
	OpOr
	OpEq
	OpIdentical
	OpNeq
	OpLt
	OpGt
	OpLe
	OpGe
	OpNot
	OpLen
	OpTypeValue
	OpTypeDomain
	OpResourceDomain
	OpGlobal
	OpExists
	OpCanModify
	OpOld
	OpTrace
	OpEmptyVec
	OpSingleVec
	OpUpdateVec
	OpConcatVec
	OpIndexOfVec
	OpContainsVec
	OpInRangeRange
	OpInRangeVec
	OpRangeVec
	OpMaxU8
	OpMaxU64
	OpMaxU128
	OpAbortFlag
	OpAbortCode
	OpWellFormed
	OpBoxValue
	OpUnboxValue
	OpEmptyEventStore
	OpExtendEventStore
	OpEventStoreIncludes
	OpEventStoreIncludedIn
	OpNoOp

	opKindCount
)

var opNames = [...]string{
	OpFunction:             "function",
	OpPack:                 "pack",
	OpTuple:                "tuple",
	OpSelect:               "select",
	OpUpdateField:          "update_field",
	OpResult:               "result",
	OpIndex:                "index",
	OpSlice:                "slice",
	OpRange:                "range",
	OpAdd:                  "add",
	OpSub:                  "sub",
	OpMul:                  "mul",
	OpMod:                  "mod",
	OpDiv:                  "div",
	OpBitOr:                "bit_or",
	OpBitAnd:               "bit_and",
	OpXor:                  "xor",
	OpShl:                  "shl",
	OpShr:                  "shr",
	OpImplies:              "implies",
	OpIff:                  "iff",
	OpAnd:                  "and",
	OpOr:                   "or",
	OpEq:                   "eq",
	OpIdentical:            "identical",
	OpNeq:                  "neq",
	OpLt:                   "lt",
	OpGt:                   "gt",
	OpLe:                   "le",
	OpGe:                   "ge",
	OpNot:                  "not",
	OpLen:                  "len",
	OpTypeValue:            "type_value",
	OpTypeDomain:           "type_domain",
	OpResourceDomain:       "resource_domain",
	OpGlobal:               "global",
	OpExists:               "exists",
	OpCanModify:            "can_modify",
	OpOld:                  "old",
	OpTrace:                "trace",
	OpEmptyVec:             "empty_vec",
	OpSingleVec:            "single_vec",
	OpUpdateVec:            "update_vec",
	OpConcatVec:            "concat_vec",
	OpIndexOfVec:           "index_of_vec",
	OpContainsVec:          "contains_vec",
	OpInRangeRange:         "in_range_range",
	OpInRangeVec:           "in_range_vec",
	OpRangeVec:             "range_vec",
	OpMaxU8:                "max_u8",
	OpMaxU64:               "max_u64",
	OpMaxU128:              "max_u128",
	OpAbortFlag:            "abort_flag",
	OpAbortCode:            "abort_code",
	OpWellFormed:           "well_formed",
	OpBoxValue:             "box_value",
	OpUnboxValue:           "unbox_value",
	OpEmptyEventStore:      "empty_event_store",
	OpExtendEventStore:     "extend_event_store",
	OpEventStoreIncludes:   "event_store_includes",
	OpEventStoreIncludedIn: "event_store_included_in",
	OpNoOp:                 "no_op",
}

func (k OpKind) String() string {
	if k < opKindCount {
		return opNames[k]
	}
	return fmt.Sprintf("op(%d)", uint8(k))
}

// ParseOpKind maps an operation name back to its kind.
func ParseOpKind(name string) (OpKind, bool) {
	for i, n := range opNames {
		if n == name {
			return OpKind(i), true
		}
	}
	return 0, false
}

// Operation is the operator of a Call expression. Only the fields relevant
// to Kind are meaningful: Module and Fun for OpFunction; Module and Struct
// for OpPack; Module, Struct and Field for OpSelect and OpUpdateField; Index
// for OpResult; Label for OpGlobal and OpExists; Labels for OpFunction.
type Operation struct {
	Kind   OpKind
	Module ModuleID
	Struct StructID
	Field  FieldID
	Fun    SpecFunID
	Index  int
	Label  *MemoryLabel
	Labels []MemoryLabel
}

// Op builds an operation without parameters.
func Op(kind OpKind) Operation { return Operation{Kind: kind} }

// FunctionOp builds a call to a specification function.
func FunctionOp(mid ModuleID, fid SpecFunID, labels []MemoryLabel) Operation {
	return Operation{Kind: OpFunction, Module: mid, Fun: fid, Labels: labels}
}

// PackOp builds a struct construction.
func PackOp(mid ModuleID, sid StructID) Operation {
	return Operation{Kind: OpPack, Module: mid, Struct: sid}
}

// SelectOp builds a field selection.
func SelectOp(mid ModuleID, sid StructID, fid FieldID) Operation {
	return Operation{Kind: OpSelect, Module: mid, Struct: sid, Field: fid}
}

// UpdateFieldOp builds a functional field update.
func UpdateFieldOp(mid ModuleID, sid StructID, fid FieldID) Operation {
	return Operation{Kind: OpUpdateField, Module: mid, Struct: sid, Field: fid}
}

// ResultOp refers to the i-th function result.
func ResultOp(i int) Operation { return Operation{Kind: OpResult, Index: i} }

// GlobalOp reads global memory, optionally at a labelled state.
func GlobalOp(label *MemoryLabel) Operation { return Operation{Kind: OpGlobal, Label: label} }

// ExistsOp tests global memory, optionally at a labelled state.
func ExistsOp(label *MemoryLabel) Operation { return Operation{Kind: OpExists, Label: label} }

// Label returns a pointer to l for use with GlobalOp and ExistsOp.
func Label(l MemoryLabel) *MemoryLabel { return &l }

// Key is the canonical string used in content hashes.
func (o Operation) Key() string {
	var b strings.Builder
	b.WriteString(o.Kind.String())
	switch o.Kind {
	case OpFunction:
		fmt.Fprintf(&b, "(%d.%d)", o.Module, o.Fun)
		if o.Labels != nil {
			b.WriteByte('[')
			for i, l := range o.Labels {
				if i > 0 {
					b.WriteByte(',')
				}
				fmt.Fprintf(&b, "%d", uint32(l))
			}
			b.WriteByte(']')
		}
	case OpPack:
		fmt.Fprintf(&b, "(%d.%d)", o.Module, o.Struct)
	case OpSelect, OpUpdateField:
		fmt.Fprintf(&b, "(%d.%d.%d)", o.Module, o.Struct, o.Field)
	case OpResult:
		fmt.Fprintf(&b, "(%d)", o.Index)
	case OpGlobal, OpExists:
		if o.Label != nil {
			fmt.Fprintf(&b, "[%d]", uint32(*o.Label))
		}
	}
	return b.String()
}

func (o Operation) String() string { return o.Key() }

// Equal compares two operations including their parameters.
func (o Operation) Equal(other Operation) bool { return o.Key() == other.Key() }

// UsesMemory reports whether the operation may depend on global memory.
// Memory reads through exists and global are reported as false because
// callers track them separately; specification function calls consult
// checkPure.
func (o Operation) UsesMemory(checkPure func(mid ModuleID, fid SpecFunID) bool) bool {
	switch o.Kind {
	case OpExists, OpGlobal:
		return false
	case OpFunction:
		return checkPure(o.Module, o.Fun)
	default:
		return true
	}
}
