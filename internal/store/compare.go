package store

import (
	"context"
	"fmt"

	"github.com/roach88/specflow/internal/usage"
)

// ChangeKind classifies a summary relative to an earlier run.
type ChangeKind string

const (
	Added     ChangeKind = "added"
	Changed   ChangeKind = "changed"
	Unchanged ChangeKind = "unchanged"
	Removed   ChangeKind = "removed"
)

// Change is the status of one function variant's summary.
type Change struct {
	Function string     `json:"function"`
	Variant  string     `json:"variant"`
	Kind     ChangeKind `json:"kind"`
}

type summaryKey struct {
	Function string
	Variant  string
}

// Compare reports how summaries differ from those stored for the run
// baseID, by content hash. Current summaries come first in their order,
// followed by removed ones in stored order.
func (s *Store) Compare(ctx context.Context, baseID string, current []usage.Snapshot) ([]Change, error) {
	if _, _, err := s.ReadRun(ctx, baseID); err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	stored, order, err := s.summaryHashes(ctx, baseID)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}

	seen := make(map[summaryKey]bool, len(current))
	changes := make([]Change, 0, len(current))
	for _, snap := range current {
		k := summaryKey{Function: snap.Function, Variant: snap.Variant}
		seen[k] = true
		c := Change{Function: snap.Function, Variant: snap.Variant}
		old, ok := stored[k]
		if !ok {
			c.Kind = Added
		} else {
			h, err := snap.Hash()
			if err != nil {
				return nil, fmt.Errorf("compare: %w", err)
			}
			c.Kind = Unchanged
			if h != old {
				c.Kind = Changed
			}
		}
		changes = append(changes, c)
	}
	for _, k := range order {
		if !seen[k] {
			changes = append(changes, Change{Function: k.Function, Variant: k.Variant, Kind: Removed})
		}
	}
	return changes, nil
}
