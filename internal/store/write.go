package store

import (
	"context"
	"fmt"

	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/usage"
)

// Run is the record of one analysis run.
type Run struct {
	ID            string `json:"id"`
	Seq           int64  `json:"seq"`
	Source        string `json:"source"`
	ProgramHash   string `json:"program_hash"`
	Strict        bool   `json:"strict"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
}

// NewRun creates a run record for source with the current tool versions.
// Seq is assigned by WriteRun.
func NewRun(ids IDGenerator, source, programHash string, strict bool) Run {
	return Run{
		ID:            ids.Generate(),
		Source:        source,
		ProgramHash:   programHash,
		Strict:        strict,
		EngineVersion: ir.AnalyzerVersion,
		IRVersion:     ir.IRVersion,
	}
}

// WriteRun inserts a run and its summaries in one transaction and returns
// the run with its assigned seq. Seq is one more than the largest seq in
// the store.
//
// Summaries are stored in the given order. Writing a run id twice fails.
func (s *Store) WriteRun(ctx context.Context, run Run, summaries []usage.Snapshot) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return run, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return run, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, source, program_hash, strict, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Source,
		run.ProgramHash,
		run.Strict,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return run, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	for i, snap := range summaries {
		data, hash, err := marshalSnapshot(snap)
		if err != nil {
			return run, fmt.Errorf("write run %s: %w", run.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO usage_summaries
			(run_id, seq, function, variant, summary, hash)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			i+1,
			snap.Function,
			snap.Variant,
			data,
			hash,
		)
		if err != nil {
			return run, fmt.Errorf("write summary %s [%s]: %w", snap.Function, snap.Variant, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return run, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}
