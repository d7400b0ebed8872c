// Package usage computes, for every function, the global memory it
// accesses, modifies, assumes and asserts, both in its own body and through
// the functions it calls.
package usage

import (
	"slices"

	"github.com/roach88/specflow/internal/dataflow"
	"github.com/roach88/specflow/internal/ir"
)

// Memory is a global resource: an instantiated struct.
type Memory = ir.QualifiedInstID[ir.StructID]

// Scope says whether a function touches memory itself or through a callee.
type Scope uint8

const (
	Direct Scope = iota
	Transitive
)

func (s Scope) String() string {
	if s == Transitive {
		return "transitive"
	}
	return "direct"
}

// MemoryUsage splits one category of memory usage by scope. All is always
// the union of Direct and Transitive.
type MemoryUsage struct {
	Direct     dataflow.SetDomain[Memory]
	Transitive dataflow.SetDomain[Memory]
	All        dataflow.SetDomain[Memory]
}

// AddDirect records memory used by the function itself.
func (m *MemoryUsage) AddDirect(mem Memory) {
	m.Direct.Insert(mem)
	m.All.Insert(mem)
}

// AddTransitive records memory used through a callee.
func (m *MemoryUsage) AddTransitive(mem Memory) {
	m.Transitive.Insert(mem)
	m.All.Insert(mem)
}

// Add records mem in the given scope.
func (m *MemoryUsage) Add(scope Scope, mem Memory) {
	if scope == Transitive {
		m.AddTransitive(mem)
		return
	}
	m.AddDirect(mem)
}

// Join unions every set of other into m. All three sets are always joined.
func (m *MemoryUsage) Join(other *MemoryUsage) dataflow.JoinResult {
	return dataflow.CombineAll(
		m.Direct.Join(&other.Direct),
		m.Transitive.Join(&other.Transitive),
		m.All.Join(&other.All),
	)
}

// Clone returns an independent copy.
func (m *MemoryUsage) Clone() *MemoryUsage {
	return &MemoryUsage{
		Direct:     *m.Direct.Clone(),
		Transitive: *m.Transitive.Clone(),
		All:        *m.All.Clone(),
	}
}

// Equal compares all three sets.
func (m *MemoryUsage) Equal(other *MemoryUsage) bool {
	return m.Direct.Equal(&other.Direct) &&
		m.Transitive.Equal(&other.Transitive) &&
		m.All.Equal(&other.All)
}

// DirectInst returns the direct memory instantiated with inst.
func (m *MemoryUsage) DirectInst(inst []ir.Type) []Memory { return instantiated(&m.Direct, inst) }

// TransitiveInst returns the transitive memory instantiated with inst.
func (m *MemoryUsage) TransitiveInst(inst []ir.Type) []Memory {
	return instantiated(&m.Transitive, inst)
}

// AllInst returns all memory instantiated with inst.
func (m *MemoryUsage) AllInst(inst []ir.Type) []Memory { return instantiated(&m.All, inst) }

// DirectUninst returns the structs of the direct memory.
func (m *MemoryUsage) DirectUninst() []ir.QualifiedID[ir.StructID] { return uninstantiated(&m.Direct) }

// TransitiveUninst returns the structs of the transitive memory.
func (m *MemoryUsage) TransitiveUninst() []ir.QualifiedID[ir.StructID] {
	return uninstantiated(&m.Transitive)
}

// AllUninst returns the structs of all memory.
func (m *MemoryUsage) AllUninst() []ir.QualifiedID[ir.StructID] { return uninstantiated(&m.All) }

func instantiated(set *dataflow.SetDomain[Memory], inst []ir.Type) []Memory {
	out := dataflow.NewSetDomain[Memory]()
	for _, mem := range set.Items() {
		out.Insert(mem.Instantiate(inst))
	}
	return out.Items()
}

func uninstantiated(set *dataflow.SetDomain[Memory]) []ir.QualifiedID[ir.StructID] {
	var out []ir.QualifiedID[ir.StructID]
	for _, mem := range set.Items() {
		q := mem.Qualified()
		if !slices.Contains(out, q) {
			out = append(out, q)
		}
	}
	slices.SortFunc(out, func(a, b ir.QualifiedID[ir.StructID]) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return out
}
