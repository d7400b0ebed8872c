// Package ir provides the specification expression model.
//
// Expressions are hash-consed into an Arena: every node carries a content
// hash, and structurally identical trees share one handle. Exp values are
// cheap to copy and compare; ExpData is the variant view of a single node.
//
// The package also defines the identifiers, types, values, operations and
// conditions that expressions refer to. Program-wide attributes of nodes
// (types, locations, instantiations) are not stored here but looked up
// through the Env interface.
//
// ir imports nothing internal. All other internal packages import ir.
package ir
