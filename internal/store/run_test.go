package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specflow/internal/ir"
	"github.com/roach88/specflow/internal/testutil"
	"github.com/roach88/specflow/internal/usage"
)

func category(all, direct, transitive []string) usage.CategorySnapshot {
	return usage.CategorySnapshot{All: all, Direct: direct, Transitive: transitive}
}

func empty() usage.CategorySnapshot { return category([]string{}, []string{}, []string{}) }

func snapshot(fun, variant string, accessed ...string) usage.Snapshot {
	if accessed == nil {
		accessed = []string{}
	}
	return usage.Snapshot{
		Function: fun,
		Variant:  variant,
		Accessed: category(accessed, accessed, []string{}),
		Modified: empty(),
		Assumed:  empty(),
		Asserted: empty(),
	}
}

func TestWriteAndReadRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	ids := testutil.NewSequentialIDs()

	summaries := []usage.Snapshot{
		snapshot("M::g", "baseline", "M::R"),
		snapshot("M::f", "baseline", "M::R", "M::S<u64>"),
		snapshot("M::f", "verification"),
	}
	run, err := s.WriteRun(ctx, NewRun(ids, "bank", "abc", true), summaries)
	require.NoError(t, err)
	assert.Equal(t, "run-0001", run.ID)
	assert.Equal(t, int64(1), run.Seq)

	got, read, err := s.ReadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.Equal(t, ir.AnalyzerVersion, got.EngineVersion)
	assert.Equal(t, ir.IRVersion, got.IRVersion)
	assert.True(t, got.Strict)
	assert.Equal(t, summaries, read, "summaries read back in write order")
}

func TestWriteRunAssignsSeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	ids := testutil.NewSequentialIDs()

	for i := 1; i <= 3; i++ {
		run, err := s.WriteRun(ctx, NewRun(ids, "p", "h", false), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(i), run.Seq)
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"run-0001", "run-0002", "run-0003"},
		[]string{runs[0].ID, runs[1].ID, runs[2].ID})

	latest, ok, err := s.LatestRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-0003", latest.ID)
}

func TestWriteRunDuplicateIDRollsBack(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	ids := testutil.FixedID("same")

	_, err := s.WriteRun(ctx, NewRun(ids, "p", "h", false), []usage.Snapshot{snapshot("M::f", "baseline")})
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, NewRun(ids, "p", "h", false), []usage.Snapshot{snapshot("M::g", "baseline")})
	require.Error(t, err)

	summaries, err := s.ReadSummaries(ctx, "same")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "M::f", summaries[0].Function)
}

func TestEmptyStore(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, ok, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	_, _, err = s.ReadRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	summaries, err := s.ReadSummaries(ctx, "nope")
	require.NoError(t, err)
	assert.NotNil(t, summaries)
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	ids := testutil.NewSequentialIDs()

	base, err := s.WriteRun(ctx, NewRun(ids, "p", "h1", false), []usage.Snapshot{
		snapshot("M::f", "baseline", "M::R"),
		snapshot("M::g", "baseline", "M::R"),
		snapshot("M::h", "baseline"),
	})
	require.NoError(t, err)

	changes, err := s.Compare(ctx, base.ID, []usage.Snapshot{
		snapshot("M::f", "baseline", "M::R"),
		snapshot("M::g", "baseline", "M::R", "M::S"),
		snapshot("M::k", "baseline"),
	})
	require.NoError(t, err)
	assert.Equal(t, []Change{
		{Function: "M::f", Variant: "baseline", Kind: Unchanged},
		{Function: "M::g", Variant: "baseline", Kind: Changed},
		{Function: "M::k", Variant: "baseline", Kind: Added},
		{Function: "M::h", Variant: "baseline", Kind: Removed},
	}, changes)

	_, err = s.Compare(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestUUIDv7Generator(t *testing.T) {
	var gen UUIDv7Generator
	a, b := gen.Generate(), gen.Generate()
	assert.NotEqual(t, a, b)

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}
