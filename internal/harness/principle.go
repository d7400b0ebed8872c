package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/specflow/internal/usage"
)

// CheckPrinciples checks the principles every usage summary satisfies
// and returns a message per violation:
//
//   - in each category, all is the union of direct and transitive
//   - memory in any category is also accessed, in the same scope
func CheckPrinciples(s usage.Snapshot) []string {
	var errs []string
	for _, c := range usage.Categories {
		cs := s.Category(c)
		union := append(slices.Clone(cs.Direct), cs.Transitive...)
		if !sameSet(union, cs.All) {
			errs = append(errs, fmt.Sprintf("%s [%s]: %s all %s is not direct %s + transitive %s",
				s.Function, s.Variant, c, formatSet(cs.All), formatSet(cs.Direct), formatSet(cs.Transitive)))
		}
		if c == usage.Accessed {
			continue
		}
		for _, scope := range []string{ScopeDirect, ScopeTransitive} {
			accessed := selectScope(&s.Accessed, scope)
			for _, m := range selectScope(cs, scope) {
				if !slices.Contains(accessed, m) {
					errs = append(errs, fmt.Sprintf("%s [%s]: %s %s memory %s is not accessed",
						s.Function, s.Variant, scope, c, m))
				}
			}
		}
	}
	return errs
}
