// Package harness provides conformance testing for the usage analysis.
//
// The harness compiles a program description, runs the usage analysis over
// it, persists the resulting summaries to a fresh store and checks the
// summaries read back from the store against the scenario.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	program: ../programs/bank    # CUE directory, .cue or .yaml file
//	strict: false                # fail on callees without a summary
//	expect:
//	  - function: Bank::withdraw
//	    variant: baseline
//	    modified:
//	      direct: [Bank::Account, Bank::Log<u64>]
//	assertions:
//	  - type: usage_contains
//	    function: Bank::deposit
//	    category: accessed
//	    scope: transitive
//	    memory: Bank::Config
//	expect_error: "no baseline summary"
//
// Program paths are relative to the scenario file.
//
// # Expectations
//
// An expect entry compares whole memory sets. Only the categories and
// scopes it names are compared; an empty list expects an empty set.
//
// # Assertion Types
//
//   - usage_contains: the memory is in the category and scope
//   - usage_excludes: the memory is not in the category and scope
//   - same_usage: two function variants have identical summaries
//   - no_usage: the function variant uses no memory at all
//
// # Principles
//
// Every summary is also checked against the principles any usage summary
// satisfies, whatever the program: all is the union of direct and
// transitive, and accessed covers every other category.
//
// # Deterministic Testing
//
// Runs are written with the scenario name as run id into an in-memory
// SQLite store, so repeated runs produce identical results and golden
// dumps.
package harness
