package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/specflow/internal/pipeline"
	"github.com/roach88/specflow/internal/usage"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden dump.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path to the program description, relative to the
	// scenario file once loaded.
	Program string `yaml:"program"`

	// Strict makes a call to a function without a summary an error.
	Strict bool `yaml:"strict,omitempty"`

	// Parallelism bounds concurrently analyzed components. Zero means one.
	Parallelism int `yaml:"parallelism,omitempty"`

	// Expect compares memory sets of function variants.
	Expect []Expectation `yaml:"expect,omitempty"`

	// Assertions check single memories and relations between summaries.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// ExpectError, when set, must be a substring of the error the
	// analysis fails with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Expectation is the expected usage of one function variant. Nil
// categories and nil scope lists are not compared.
type Expectation struct {
	Function string          `yaml:"function"`
	Variant  string          `yaml:"variant,omitempty"`
	Accessed *CategoryExpect `yaml:"accessed,omitempty"`
	Modified *CategoryExpect `yaml:"modified,omitempty"`
	Assumed  *CategoryExpect `yaml:"assumed,omitempty"`
	Asserted *CategoryExpect `yaml:"asserted,omitempty"`
}

// Category returns the expectation for category c.
func (e *Expectation) Category(c usage.Category) *CategoryExpect {
	switch c {
	case usage.Modified:
		return e.Modified
	case usage.Assumed:
		return e.Assumed
	case usage.Asserted:
		return e.Asserted
	default:
		return e.Accessed
	}
}

// CategoryExpect lists expected memory names per scope.
type CategoryExpect struct {
	All        []string `yaml:"all,omitempty"`
	Direct     []string `yaml:"direct,omitempty"`
	Transitive []string `yaml:"transitive,omitempty"`
}

// Assertion checks one fact about the summaries.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	Function string `yaml:"function"`
	Variant  string `yaml:"variant,omitempty"`

	// Category and Scope select a memory set (usage_contains,
	// usage_excludes). Scope defaults to all.
	Category string `yaml:"category,omitempty"`
	Scope    string `yaml:"scope,omitempty"`
	Memory   string `yaml:"memory,omitempty"`

	// Other is the second function of same_usage; OtherVariant its variant.
	Other        string `yaml:"other,omitempty"`
	OtherVariant string `yaml:"other_variant,omitempty"`
}

// Assertion type constants.
const (
	AssertUsageContains = "usage_contains"
	AssertUsageExcludes = "usage_excludes"
	AssertSameUsage     = "same_usage"
	AssertNoUsage       = "no_usage"
)

// Scope names accepted by assertions.
const (
	ScopeAll        = "all"
	ScopeDirect     = "direct"
	ScopeTransitive = "transitive"
)

// LoadScenario reads and parses a scenario YAML file and resolves its
// program path relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml scenario in dir, sorted by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); err != nil {
		return fmt.Errorf("program not found: %s", s.Program)
	}
	if s.Parallelism < 0 {
		return fmt.Errorf("parallelism must be non-negative")
	}
	if len(s.Expect) == 0 && len(s.Assertions) == 0 && s.ExpectError == "" {
		return fmt.Errorf("at least one of expect, assertions or expect_error is required")
	}

	for i, e := range s.Expect {
		if e.Function == "" {
			return fmt.Errorf("expect[%d]: function is required", i)
		}
		if _, err := pipeline.ParseVariant(e.Variant); err != nil {
			return fmt.Errorf("expect[%d]: %w", i, err)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Function == "" {
		return fmt.Errorf("assertions[%d]: function is required", index)
	}
	if _, err := pipeline.ParseVariant(a.Variant); err != nil {
		return fmt.Errorf("assertions[%d]: %w", index, err)
	}

	switch a.Type {
	case AssertUsageContains, AssertUsageExcludes:
		if _, ok := parseCategory(a.Category); !ok {
			return fmt.Errorf("assertions[%d]: unknown category %q for %s", index, a.Category, a.Type)
		}
		switch a.Scope {
		case "", ScopeAll, ScopeDirect, ScopeTransitive:
		default:
			return fmt.Errorf("assertions[%d]: unknown scope %q", index, a.Scope)
		}
		if a.Memory == "" {
			return fmt.Errorf("assertions[%d]: memory is required for %s", index, a.Type)
		}
	case AssertSameUsage:
		if a.Other == "" {
			return fmt.Errorf("assertions[%d]: other is required for same_usage", index)
		}
		if _, err := pipeline.ParseVariant(a.OtherVariant); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertNoUsage:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func parseCategory(s string) (usage.Category, bool) {
	for _, c := range usage.Categories {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}
