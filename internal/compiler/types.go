package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/specflow/internal/ir"
)

// StructResolver maps a struct name to its declaration. Module is empty for
// an unqualified name.
type StructResolver func(module, name string) (mid ir.ModuleID, sid ir.StructID, typeParams int, err error)

// ParseType parses a type string:
//
//	bool u8 u64 u128 num address signer range type
//	vector<T>   &T   &mut T   (T1, T2)   #0   S   M::S<T1, T2>
//
// Struct names are resolved with resolve, which may be nil when the string
// is known to contain no structs.
func ParseType(s string, resolve StructResolver) (ir.Type, error) {
	p := &typeParser{src: s, resolve: resolve}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

// ParseMemory parses a memory name such as "M::S<u64>".
func ParseMemory(s string, resolve StructResolver) (ir.QualifiedInstID[ir.StructID], error) {
	t, err := ParseType(s, resolve)
	if err != nil {
		return ir.QualifiedInstID[ir.StructID]{}, err
	}
	st, ok := t.(ir.StructType)
	if !ok {
		return ir.QualifiedInstID[ir.StructID]{}, fmt.Errorf("memory %q: not a struct type", s)
	}
	return st.QualifiedInstID(), nil
}

type typeParser struct {
	src     string
	pos     int
	resolve StructResolver
}

func (p *typeParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type %q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) expect(tok string) error {
	if !p.consume(tok) {
		return p.errorf("expected %q", tok)
	}
	return nil
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parse() (ir.Type, error) {
	switch {
	case p.consume("&"):
		mutable := p.consume("mut ")
		inner, err := p.parse()
		if err != nil {
			return nil, err
		}
		return ir.ReferenceType{Mutable: mutable, Inner: inner}, nil
	case p.consume("#"):
		n, err := strconv.ParseUint(p.ident(), 10, 16)
		if err != nil {
			return nil, p.errorf("bad type parameter")
		}
		return ir.TypeParameter(n), nil
	case p.consume("("):
		elems, err := p.list(")")
		if err != nil {
			return nil, err
		}
		return ir.TupleType{Elems: elems}, nil
	}

	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected a type")
	}
	if name == "vector" {
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		return ir.VectorType{Elem: elem}, nil
	}
	if prim, ok := ir.ParsePrimitive(name); ok {
		return prim, nil
	}

	module := ""
	if p.consume("::") {
		module, name = name, p.ident()
	}
	var args []ir.Type
	if p.consume("<") {
		var err error
		if args, err = p.list(">"); err != nil {
			return nil, err
		}
	}
	if p.resolve == nil {
		return nil, p.errorf("unknown type %s", name)
	}
	mid, sid, arity, err := p.resolve(module, name)
	if err != nil {
		return nil, err
	}
	if len(args) != arity {
		return nil, p.errorf("struct %s expects %d type arguments, got %d", name, arity, len(args))
	}
	return ir.StructType{Module: mid, Struct: sid, Args: args}, nil
}

func (p *typeParser) list(closing string) ([]ir.Type, error) {
	var out []ir.Type
	if p.consume(closing) {
		return out, nil
	}
	for {
		t, err := p.parse()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.consume(closing) {
			return out, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
}
