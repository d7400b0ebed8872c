package usage

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/model"
	"github.com/roach88/specflow/internal/pipeline"
)

// CategorySnapshot is one category of a usage state with memories rendered
// as names.
type CategorySnapshot struct {
	All        []string `json:"all" yaml:"all"`
	Direct     []string `json:"direct" yaml:"direct"`
	Transitive []string `json:"transitive" yaml:"transitive"`
}

// Snapshot is the printable form of a function's usage state. Snapshots
// are what gets persisted and compared by the conformance harness.
type Snapshot struct {
	Function string           `json:"function" yaml:"function"`
	Variant  string           `json:"variant" yaml:"variant"`
	Accessed CategorySnapshot `json:"accessed" yaml:"accessed"`
	Modified CategorySnapshot `json:"modified" yaml:"modified"`
	Assumed  CategorySnapshot `json:"assumed" yaml:"assumed"`
	Asserted CategorySnapshot `json:"asserted" yaml:"asserted"`
}

// NewSnapshot renders s.
func NewSnapshot(env *model.GlobalEnv, fun pipeline.FunID, variant pipeline.Variant, s *UsageState) Snapshot {
	names := func(mems []Memory) []string {
		out := make([]string, len(mems))
		for i, m := range mems {
			out[i] = env.MemoryName(m)
		}
		return out
	}
	category := func(u *MemoryUsage) CategorySnapshot {
		return CategorySnapshot{
			All:        names(u.All.Items()),
			Direct:     names(u.Direct.Items()),
			Transitive: names(u.Transitive.Items()),
		}
	}
	return Snapshot{
		Function: env.FunctionName(fun),
		Variant:  variant.String(),
		Accessed: category(&s.Accessed),
		Modified: category(&s.Modified),
		Assumed:  category(&s.Assumed),
		Asserted: category(&s.Asserted),
	}
}

// Category returns the snapshot of category c.
func (s *Snapshot) Category(c Category) *CategorySnapshot {
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

// Canonical returns the snapshot as a value for ir.MarshalCanonical.
func (s Snapshot) Canonical() map[string]any {
	category := func(c CategorySnapshot) map[string]any {
		return map[string]any{"all": c.All, "direct": c.Direct, "transitive": c.Transitive}
	}
	return map[string]any{
		"function": s.Function,
		"variant":  s.Variant,
		"accessed": category(s.Accessed),
		"modified": category(s.Modified),
		"assumed":  category(s.Assumed),
		"asserted": category(s.Asserted),
	}
}

// Hash is the content hash of the snapshot.
func (s Snapshot) Hash() (string, error) {
	return ir.SummaryHash(s.Canonical())
}

// Snapshots renders the usage of every analyzed function variant of the
// target modules, in declaration order.
func Snapshots(env *model.GlobalEnv, holder *pipeline.TargetsHolder) []Snapshot {
	var out []Snapshot
	for _, m := range env.Modules() {
		if !m.IsTarget {
			continue
		}
		for _, f := range m.Functions {
			fun := m.FunctionID(f.ID)
			for _, data := range holder.Targets(fun) {
				out = append(out, NewSnapshot(env, fun, data.Variant, Get(data)))
			}
		}
	}
	return out
}

// WriteSnapshots writes snapshots in the usage dump format.
func WriteSnapshots(w io.Writer, snaps []Snapshot) error {
	var b strings.Builder
	b.WriteString("\n\n********* Result of usage analysis *********\n\n\n")
	for i := range snaps {
		s := &snaps[i]
		fmt.Fprintf(&b, "function %s [%s] {\n", s.Function, s.Variant)
		for _, c := range Categories {
			cs := s.Category(c)
			fmt.Fprintf(&b, "  %s = {%s}\n", c, strings.Join(cs.All, ", "))
			fmt.Fprintf(&b, "  directly %s = {%s}\n", c, strings.Join(cs.Direct, ", "))
		}
		b.WriteString("}\n")
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
