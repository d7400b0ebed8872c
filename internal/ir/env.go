package ir

// Env is the global program database consumed by expression analyses.
//
// It owns the per-node attribute tables (type, location, instantiation) and
// answers questions about declarations that expressions refer to.
// Implementations must be safe for concurrent use.
type Env interface {
	// SymbolPool returns the pool symbols in expressions were interned in.
	SymbolPool() *SymbolPool

	// NodeType returns the type of the node.
	NodeType(id NodeID) Type

	// NodeInstantiation returns the type instantiation of the node, if any.
	NodeInstantiation(id NodeID) ([]Type, bool)

	// NodeLoc returns the source location of the node.
	NodeLoc(id NodeID) Loc

	// NewNode allocates a fresh node id with the given attributes.
	NewNode(loc Loc, ty Type) NodeID

	// SetNodeInstantiation records the instantiation of a node.
	SetNodeInstantiation(id NodeID, inst []Type)

	// SpecFunUsedMemory returns the memory a specification function reads,
	// in terms of its own type parameters.
	SpecFunUsedMemory(mid ModuleID, fid SpecFunID) []QualifiedInstID[StructID]

	// StructName returns the unqualified name of a struct.
	StructName(mid ModuleID, sid StructID) string

	// QualifiedStructName returns a struct name of the form M::S.
	QualifiedStructName(mid ModuleID, sid StructID) string

	// SpecFunName returns a specification function name of the form M::f.
	SpecFunName(mid ModuleID, fid SpecFunID) string

	// FieldName returns the name of a struct field.
	FieldName(mid ModuleID, sid StructID, fid FieldID) string

	// TypeString renders a type with declaration names resolved.
	TypeString(t Type) string
}
