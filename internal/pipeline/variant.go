package pipeline

import "fmt"

// Variant names a compiled form of a function. The baseline variant is the
// function as written; the verification variant carries instrumentation
// added for verification.
type Variant uint8

const (
	Baseline Variant = iota
	Verification
)

func (v Variant) String() string {
	switch v {
	case Baseline:
		return "baseline"
	case Verification:
		return "verification"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// ParseVariant parses the String form of a variant.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "baseline", "":
		return Baseline, nil
	case "verification":
		return Verification, nil
	default:
		return 0, fmt.Errorf("unknown function variant %q", s)
	}
}
