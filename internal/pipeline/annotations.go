package pipeline

import (
	"maps"
	"reflect"

	"github.com/roach88/specflow/internal/ir"
)

// Annotations attach analysis results to a FunctionData. There is at most
// one annotation per Go type.
type Annotations struct {
	values map[reflect.Type]any
}

// Set stores v, replacing any annotation of the same type.
func Set[T any](a *Annotations, v T) {
	if a.values == nil {
		a.values = make(map[reflect.Type]any)
	}
	a.values[reflect.TypeFor[T]()] = v
}

// Get returns the annotation of type T.
func Get[T any](a *Annotations) (T, bool) {
	v, ok := a.values[reflect.TypeFor[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// MustGet returns the annotation of type T and panics if the analysis that
// produces it has not run.
func MustGet[T any](a *Annotations) T {
	v, ok := Get[T](a)
	if !ok {
		ir.Violate(ir.CodeNotAnalyzed, "target not analyzed: no %s annotation", reflect.TypeFor[T]())
	}
	return v
}

// Has reports whether an annotation of type T is present.
func Has[T any](a *Annotations) bool {
	_, ok := a.values[reflect.TypeFor[T]()]
	return ok
}

// Len returns the number of annotations.
func (a *Annotations) Len() int { return len(a.values) }

// Clone returns a copy sharing the annotation values.
func (a *Annotations) Clone() Annotations {
	return Annotations{values: maps.Clone(a.values)}
}
