package ir

import (
	"fmt"
	"math/big"
	"strings"
)

// Value is a constant appearing in an expression.
type Value interface {
	Key() string
	String() string
	isValue()
}

// AddressValue is an account address.
type AddressValue struct {
	Addr *big.Int
}

// NumberValue is an arbitrary precision integer.
type NumberValue struct {
	N *big.Int
}

// BoolValue is a boolean constant.
type BoolValue bool

// ByteArrayValue is a byte string constant.
type ByteArrayValue []byte

// Address builds an AddressValue.
func Address(a *big.Int) AddressValue { return AddressValue{Addr: a} }

// Number builds a NumberValue from an int64.
func Number(n int64) NumberValue { return NumberValue{N: big.NewInt(n)} }

func (v AddressValue) Key() string    { return "addr:" + v.String() }
func (v AddressValue) String() string { return "0x" + v.Addr.Text(16) }
func (AddressValue) isValue()         {}

func (v NumberValue) Key() string    { return "num:" + v.String() }
func (v NumberValue) String() string { return v.N.String() }
func (NumberValue) isValue()         {}

func (v BoolValue) Key() string { return "bool:" + v.String() }
func (v BoolValue) String() string {
	if v {
		return "true"
	}
	return "false"
}
func (BoolValue) isValue() {}

func (v ByteArrayValue) Key() string { return "bytes:" + v.String() }
func (v ByteArrayValue) String() string {
	parts := make([]string, len(v))
	for i, b := range v {
		parts[i] = fmt.Sprintf("%d", b)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (ByteArrayValue) isValue() {}

// maxAddressHex is the address reserved for the script pseudo-module.
const maxAddressHex = "ffffffffffffffffffffffffffffffff"

// MaxAddress is the largest 128-bit address. Scripts live in a pseudo-module
// at this address.
var MaxAddress = mustParseHex(maxAddressHex)

func mustParseHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("ir: bad hex constant " + s)
	}
	return n
}

// ParseAddress parses an address literal with or without a 0x prefix.
func ParseAddress(s string) (*big.Int, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid address %q", s)
	}
	if n.Cmp(MaxAddress) > 0 {
		return nil, fmt.Errorf("address %q exceeds 128 bits", s)
	}
	return n, nil
}

// ModuleName is an address qualified module name.
type ModuleName struct {
	Addr *big.Int
	Name Symbol
}

// IsScript reports whether the module is the script pseudo-module.
func (m ModuleName) IsScript() bool {
	return m.Addr != nil && m.Addr.Cmp(MaxAddress) == 0
}
