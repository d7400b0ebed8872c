package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/usage"
)

// marshalSnapshot converts a snapshot to canonical JSON TEXT and its content
// hash.
func marshalSnapshot(s usage.Snapshot) (data, hash string, err error) {
	b, err := ir.MarshalCanonical(s.Canonical())
	if err != nil {
		return "", "", fmt.Errorf("marshal summary %s: %w", s.Function, err)
	}
	hash, err = s.Hash()
	if err != nil {
		return "", "", fmt.Errorf("hash summary %s: %w", s.Function, err)
	}
	return string(b), hash, nil
}

// unmarshalSnapshot parses canonical JSON TEXT back into a snapshot.
// Empty categories decode to empty, not nil, slices.
func unmarshalSnapshot(data string) (usage.Snapshot, error) {
	var s usage.Snapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return usage.Snapshot{}, fmt.Errorf("unmarshal summary: %w", err)
	}
	for _, c := range usage.Categories {
		cs := s.Category(c)
		for _, list := range []*[]string{&cs.All, &cs.Direct, &cs.Transitive} {
			if *list == nil {
				*list = []string{}
			}
		}
	}
	return s, nil
}
