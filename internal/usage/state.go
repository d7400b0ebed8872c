package usage

import (
	"fmt"

	"github.com/roach88/specflow/internal/dataflow"
	"github.com/roach88/specflow/internal/ir"
)

// Category is one of the four kinds of memory usage.
type Category uint8

const (
	Accessed Category = iota
	Modified
	Assumed
	Asserted
)

// Categories lists the categories in dump order.
var Categories = []Category{Accessed, Modified, Assumed, Asserted}

func (c Category) String() string {
	switch c {
	case Accessed:
		return "accessed"
	case Modified:
		return "modified"
	case Assumed:
		return "assumed"
	case Asserted:
		return "asserted"
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// UsageState is the memory usage of a function. Accessed includes the
// memory of the other three categories.
type UsageState struct {
	Accessed MemoryUsage
	Modified MemoryUsage
	Assumed  MemoryUsage
	Asserted MemoryUsage
}

// NewUsageState returns the empty state.
func NewUsageState() *UsageState {
	return &UsageState{}
}

// Usage returns the record of category c.
func (s *UsageState) Usage(c Category) *MemoryUsage {
	switch c {
	case Modified:
		return &s.Modified
	case Assumed:
		return &s.Assumed
	case Asserted:
		return &s.Asserted
	default:
		return &s.Accessed
	}
}

// Add records mems in category c and scope. Memory added to any category
// is also added to Accessed in the same scope.
func (s *UsageState) Add(c Category, scope Scope, mems ...Memory) {
	for _, mem := range mems {
		s.Usage(c).Add(scope, mem)
		if c != Accessed {
			s.Accessed.Add(scope, mem)
		}
	}
}

// SubsumeCallee folds everything a callee uses, instantiated with the type
// arguments of the call, into s. The callee's memory becomes direct usage
// of s when asDirect is set and transitive usage otherwise.
func (s *UsageState) SubsumeCallee(callee *UsageState, inst []ir.Type, asDirect bool) {
	scope := Transitive
	if asDirect {
		scope = Direct
	}
	for _, c := range Categories {
		s.Add(c, scope, callee.Usage(c).AllInst(inst)...)
	}
}

// Join unions other into s. All four categories are always joined.
func (s *UsageState) Join(other *UsageState) dataflow.JoinResult {
	return dataflow.CombineAll(
		s.Accessed.Join(&other.Accessed),
		s.Modified.Join(&other.Modified),
		s.Assumed.Join(&other.Assumed),
		s.Asserted.Join(&other.Asserted),
	)
}

// Clone returns an independent copy.
func (s *UsageState) Clone() *UsageState {
	return &UsageState{
		Accessed: *s.Accessed.Clone(),
		Modified: *s.Modified.Clone(),
		Assumed:  *s.Assumed.Clone(),
		Asserted: *s.Asserted.Clone(),
	}
}

// Equal compares all categories.
func (s *UsageState) Equal(other *UsageState) bool {
	return s.Accessed.Equal(&other.Accessed) &&
		s.Modified.Equal(&other.Modified) &&
		s.Assumed.Equal(&other.Assumed) &&
		s.Asserted.Equal(&other.Asserted)
}
