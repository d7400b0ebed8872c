package pipeline

import (
	"slices"
	"sync"

	"github.com/roach88/specflow/internal/bytecode"
	"github.com/roach88/specflow/internal/ir"
)

// FunctionData is one variant of a function as seen by the processors.
type FunctionData struct {
	Variant     Variant
	Code        []bytecode.Bytecode
	LocalTypes  []ir.Type
	Annotations Annotations
}

// NewFunctionData creates function data without annotations.
func NewFunctionData(variant Variant, code []bytecode.Bytecode, localTypes []ir.Type) *FunctionData {
	return &FunctionData{Variant: variant, Code: code, LocalTypes: localTypes}
}

// CFG builds the control flow graph of the code.
func (d *FunctionData) CFG() *bytecode.CFG {
	return bytecode.NewCFG(d.Code)
}

// Clone returns a copy that can be annotated without affecting d. Code is
// shared since processors never modify instructions in place.
func (d *FunctionData) Clone() *FunctionData {
	return &FunctionData{
		Variant:     d.Variant,
		Code:        d.Code,
		LocalTypes:  d.LocalTypes,
		Annotations: d.Annotations.Clone(),
	}
}

// FunID identifies a function across the program.
type FunID = ir.QualifiedID[ir.FunID]

type targetKey struct {
	fun     FunID
	variant Variant
}

// TargetsHolder is the registry of function data. It is safe for
// concurrent use.
type TargetsHolder struct {
	mu      sync.RWMutex
	targets map[targetKey]*FunctionData
}

// NewTargetsHolder creates an empty holder.
func NewTargetsHolder() *TargetsHolder {
	return &TargetsHolder{targets: make(map[targetKey]*FunctionData)}
}

// AddTarget registers data for fun under data.Variant.
func (h *TargetsHolder) AddTarget(fun FunID, data *FunctionData) {
	h.Set(fun, data)
}

// Get returns the data of a function variant.
func (h *TargetsHolder) Get(fun FunID, variant Variant) (*FunctionData, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.targets[targetKey{fun, variant}]
	return d, ok
}

// Set replaces the data of fun for data.Variant.
func (h *TargetsHolder) Set(fun FunID, data *FunctionData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.targets[targetKey{fun, data.Variant}] = data
}

// Targets returns all variants of fun in variant order.
func (h *TargetsHolder) Targets(fun FunID) []*FunctionData {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*FunctionData
	for k, d := range h.targets {
		if k.fun == fun {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b *FunctionData) int { return int(a.Variant) - int(b.Variant) })
	return out
}

// Functions returns every function with at least one variant, sorted.
func (h *TargetsHolder) Functions() []FunID {
	h.mu.RLock()
	seen := make(map[FunID]bool)
	for k := range h.targets {
		seen[k.fun] = true
	}
	h.mu.RUnlock()

	out := make([]FunID, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	slices.SortFunc(out, compareFunID)
	return out
}

// Len returns the number of registered function variants.
func (h *TargetsHolder) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.targets)
}

func compareFunID(a, b FunID) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}
