package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/specflow/internal/usage"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, seq, source, program_hash, strict, engine_version, ir_version`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	if err := row.Scan(&r.ID, &r.Seq, &r.Source, &r.ProgramHash, &r.Strict, &r.EngineVersion, &r.IRVersion); err != nil {
		return Run{}, err
	}
	return r, nil
}

// ReadRun returns a run and its summaries in the order they were written.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, []usage.Snapshot, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, nil, fmt.Errorf("read run %s: %w", id, err)
	}
	summaries, err := s.ReadSummaries(ctx, id)
	if err != nil {
		return Run{}, nil, err
	}
	return run, summaries, nil
}

// LatestRun returns the run with the largest seq. ok is false for an empty
// store.
func (s *Store) LatestRun(ctx context.Context) (run Run, ok bool, err error) {
	run, err = scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("latest run: %w", err)
	}
	return run, true, nil
}

// ListRuns returns all runs ordered by seq.
//
// Returns an empty slice (not nil) if the store has no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSummaries returns the summaries of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no summaries.
func (s *Store) ReadSummaries(ctx context.Context, runID string) ([]usage.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT summary
		FROM usage_summaries
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	out := []usage.Snapshot{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		snap, err := unmarshalSnapshot(data)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

// summaryHashes returns function/variant keyed hashes of a run.
func (s *Store) summaryHashes(ctx context.Context, runID string) (map[summaryKey]string, []summaryKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT function, variant, hash
		FROM usage_summaries
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("query summary hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[summaryKey]string)
	var order []summaryKey
	for rows.Next() {
		var k summaryKey
		var h string
		if err := rows.Scan(&k.Function, &k.Variant, &h); err != nil {
			return nil, nil, fmt.Errorf("scan summary hash: %w", err)
		}
		hashes[k] = h
		order = append(order, k)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate summary hashes: %w", err)
	}
	return hashes, order, nil
}
