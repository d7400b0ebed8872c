package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/specflow/internal/usage"
)

// AssertionError is returned when an assertion fails.
// It includes the summary it was checked against to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Summary  *usage.Snapshot // Summary the assertion was checked against
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if s := e.Summary; s != nil {
		fmt.Fprintf(&buf, "\nSummary of %s [%s]:\n", s.Function, s.Variant)
		for _, c := range usage.Categories {
			cs := s.Category(c)
			fmt.Fprintf(&buf, "  %s = {%s}\n", c, strings.Join(cs.All, ", "))
			fmt.Fprintf(&buf, "  directly %s = {%s}\n", c, strings.Join(cs.Direct, ", "))
		}
	}
	return buf.String()
}

func formatSet(names []string) string {
	return "{" + strings.Join(names, ", ") + "}"
}

// selectScope returns the memory names of one scope of a category.
func selectScope(cs *usage.CategorySnapshot, scope string) []string {
	switch scope {
	case ScopeDirect:
		return cs.Direct
	case ScopeTransitive:
		return cs.Transitive
	default:
		return cs.All
	}
}

func missingSummary(kind, function, variant string) string {
	if variant == "" {
		variant = "baseline"
	}
	return (&AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("summary for %s [%s]", function, variant),
		Actual:   "no such summary",
	}).Error()
}

// EvaluateExpectations compares whole memory sets. Expected names are
// compared as sets, in any order.
func EvaluateExpectations(result *Result, expect []Expectation) []string {
	var errs []string
	for _, e := range expect {
		s, ok := result.Summary(e.Function, e.Variant)
		if !ok {
			errs = append(errs, missingSummary("expect", e.Function, e.Variant))
			continue
		}
		for _, c := range usage.Categories {
			want := e.Category(c)
			if want == nil {
				continue
			}
			got := s.Category(c)
			for _, scope := range []struct {
				name       string
				want, have []string
			}{
				{ScopeAll, want.All, got.All},
				{ScopeDirect, want.Direct, got.Direct},
				{ScopeTransitive, want.Transitive, got.Transitive},
			} {
				if scope.want == nil || sameSet(scope.want, scope.have) {
					continue
				}
				errs = append(errs, (&AssertionError{
					Type:     fmt.Sprintf("expect %s %s", c, scope.name),
					Expected: formatSet(scope.want),
					Actual:   formatSet(scope.have),
					Summary:  &s,
				}).Error())
			}
		}
	}
	return errs
}

func sameSet(a, b []string) bool {
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(slices.Compact(x), slices.Compact(y))
}

// EvaluateAssertions evaluates all assertions and returns their error
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	s, ok := result.Summary(a.Function, a.Variant)
	if !ok {
		return fmt.Errorf("%s", missingSummary(a.Type, a.Function, a.Variant))
	}

	switch a.Type {
	case AssertUsageContains, AssertUsageExcludes:
		c, _ := parseCategory(a.Category)
		scope := a.Scope
		if scope == "" {
			scope = ScopeAll
		}
		names := selectScope(s.Category(c), scope)
		found := slices.Contains(names, a.Memory)
		if found == (a.Type == AssertUsageContains) {
			return nil
		}
		verb := "contains"
		if a.Type == AssertUsageExcludes {
			verb = "excludes"
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s %s %s %s", c, scope, verb, a.Memory),
			Actual:   formatSet(names),
			Summary:  &s,
		}

	case AssertSameUsage:
		other, ok := result.Summary(a.Other, a.OtherVariant)
		if !ok {
			return fmt.Errorf("%s", missingSummary(a.Type, a.Other, a.OtherVariant))
		}
		for _, c := range usage.Categories {
			x, y := s.Category(c), other.Category(c)
			if !sameSet(x.All, y.All) || !sameSet(x.Direct, y.Direct) || !sameSet(x.Transitive, y.Transitive) {
				return &AssertionError{
					Type:     a.Type,
					Expected: fmt.Sprintf("%s of %s [%s] is %s", c, s.Function, s.Variant, formatSet(x.All)),
					Actual:   fmt.Sprintf("%s of %s [%s] is %s", c, other.Function, other.Variant, formatSet(y.All)),
					Summary:  &s,
				}
			}
		}
		return nil

	case AssertNoUsage:
		if len(s.Accessed.All) == 0 {
			return nil
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: "no memory used",
			Actual:   formatSet(s.Accessed.All),
			Summary:  &s,
		}
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}
