package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// encoding to change without colliding with old hashes.
const (
	DomainExp     = "specflow/exp/v1"
	DomainSummary = "specflow/summary/v1"
	DomainProgram = "specflow/program/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps domain and data from running into each other.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SummaryHash computes the content hash of a canonical summary record.
func SummaryHash(record map[string]any) (string, error) {
	canonical, err := MarshalCanonical(record)
	if err != nil {
		return "", fmt.Errorf("SummaryHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSummary, canonical), nil
}

// ProgramHash computes the content hash of a program description.
func ProgramHash(description map[string]any) (string, error) {
	canonical, err := MarshalCanonical(description)
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// expHash computes the content hash of one node. Children contribute their
// own hashes, so the hash of a node covers its whole tree.
func expHash(data ExpData) string {
	return hashWithDomain(DomainExp, MustMarshalCanonical(nodeObject(data)))
}

func nodeObject(data ExpData) map[string]any {
	obj := map[string]any{"id": uint32(data.NodeID())}
	switch d := data.(type) {
	case Invalid:
		obj["k"] = "invalid"
	case ValueExp:
		obj["k"] = "value"
		obj["v"] = d.Value.Key()
	case LocalVar:
		obj["k"] = "local"
		obj["name"] = uint32(d.Name)
	case Temporary:
		obj["k"] = "temp"
		obj["idx"] = d.Index
	case Call:
		obj["k"] = "call"
		obj["op"] = d.Oper.Key()
		obj["args"] = hashList(d.Args)
	case Invoke:
		obj["k"] = "invoke"
		obj["target"] = d.Target.Hash()
		obj["args"] = hashList(d.Args)
	case Lambda:
		obj["k"] = "lambda"
		obj["params"] = declList(d.Params)
		obj["body"] = d.Body.Hash()
	case Quant:
		obj["k"] = "quant"
		obj["kind"] = d.Kind.String()
		ranges := make([]any, len(d.Ranges))
		for i, r := range d.Ranges {
			ranges[i] = map[string]any{"decl": declObject(r.Decl), "domain": r.Domain.Hash()}
		}
		obj["ranges"] = ranges
		triggers := make([]any, len(d.Triggers))
		for i, group := range d.Triggers {
			triggers[i] = hashList(group)
		}
		obj["triggers"] = triggers
		obj["where"] = d.Where.Hash()
		obj["body"] = d.Body.Hash()
	case Block:
		obj["k"] = "block"
		obj["decls"] = declList(d.Decls)
		obj["body"] = d.Body.Hash()
	case IfElse:
		obj["k"] = "if"
		obj["cond"] = d.Cond.Hash()
		obj["then"] = d.Then.Hash()
		obj["else"] = d.Else.Hash()
	}
	return obj
}

func hashList(exps []Exp) []string {
	out := make([]string, len(exps))
	for i, e := range exps {
		out[i] = e.Hash()
	}
	return out
}

func declObject(d LocalVarDecl) map[string]any {
	return map[string]any{
		"id":      uint32(d.ID),
		"name":    uint32(d.Name),
		"binding": d.Binding.Hash(),
	}
}

func declList(decls []LocalVarDecl) []any {
	out := make([]any, len(decls))
	for i, d := range decls {
		out[i] = declObject(d)
	}
	return out
}
