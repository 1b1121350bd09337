package store

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/recording"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestRun(id string, seed uint64) Run {
	return Run{
		ID:       id,
		Model:    "growth",
		Seed:     seed,
		GridType: recording.GridType{Kind: recording.Cartesian2D, MX: 2, MY: 2, MZ: 1},
		Palette:  "BW",
	}
}

// recordFrames captures three distinct states of a 2x2 grid.
func recordFrames(t *testing.T) []recording.Frame {
	t.Helper()
	g := grid.MustNew(2, 2, 1, "BW")
	rec := recording.NewRecorder(recording.NewFixedGenerator("run-1"))
	rec.CaptureStep(recording.Adapt(g), 0)
	require.NoError(t, g.Set(0, 0, 0, 1))
	rec.CaptureStep(recording.Adapt(g), 1)
	require.NoError(t, g.Set(1, 1, 0, 1))
	rec.CaptureStep(recording.Adapt(g), 2)
	return rec.Frames()
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", fmt.Sprint(SchemaVersion())))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.CreateRun(context.Background(), createTestRun("run-1", 1)))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	runs, err := s2.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestCreateRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun("run-1", math.MaxUint64)
	require.NoError(t, s.CreateRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got.Seed, "seeds with the high bit survive")
	assert.Equal(t, run.GridType, got.GridType)
	assert.Equal(t, "BW", got.Palette)
	assert.Equal(t, StatusRunning, got.Status)
	assert.NotEmpty(t, got.CreatedAt)
}

func TestCreateRun_Duplicate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRun(ctx, createTestRun("run-1", 1)))
	assert.Error(t, s.CreateRun(ctx, createTestRun("run-1", 2)))
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRun(ctx, createTestRun("run-1", 1)))
	require.NoError(t, s.FinishRun(ctx, "run-1", 42, StatusCompleted))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 42, got.Steps)
	assert.Equal(t, StatusCompleted, got.Status)

	assert.ErrorIs(t, s.FinishRun(ctx, "missing", 1, StatusCompleted), ErrRunNotFound)
}

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	for _, id := range []string{"run-b", "run-c", "run-a"} {
		require.NoError(t, s.CreateRun(ctx, createTestRun(id, 1)))
	}
	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"run-a", "run-b", "run-c"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
}

func TestWriteFrames_ReadBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRun(ctx, createTestRun("run-1", 1)))

	frames := recordFrames(t)
	require.NoError(t, s.WriteFrames(ctx, "run-1", frames))

	got, err := s.ReadFrames(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, frames, got)

	last, err := s.LatestFrame(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, frames[2], last)

	one, err := s.ReadFrame(ctx, "run-1", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0}, one.State)
	assert.Equal(t, recording.Hash(one.State), one.Hash)
}

func TestWriteFrame_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRun(ctx, createTestRun("run-1", 1)))

	frames := recordFrames(t)
	require.NoError(t, s.WriteFrame(ctx, "run-1", frames[0]))
	require.NoError(t, s.WriteFrame(ctx, "run-1", frames[0]))

	got, err := s.ReadFrames(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWriteFrame_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteFrame(context.Background(), "missing", recordFrames(t)[0])
	assert.Error(t, err, "foreign key enforced")
}

func TestReadFrames_Empty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	frames, err := s.ReadFrames(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, frames)
	assert.Empty(t, frames)

	_, err = s.LatestFrame(ctx, "missing")
	assert.ErrorIs(t, err, ErrFrameNotFound)
	_, err = s.ReadFrame(ctx, "missing", 0)
	assert.ErrorIs(t, err, ErrFrameNotFound)
}

func TestFrames_PolarGeometry(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p, err := grid.NewPolar(3, 2, 1.0, "BRW")
	require.NoError(t, err)
	require.NoError(t, p.SetPolar(1, 4, 2))

	rec := recording.NewRecorder(recording.NewFixedGenerator("polar-1"))
	rec.Capture(recording.Adapt(p))
	run := Run{ID: rec.ID, Model: "rings", GridType: recording.TypeOf(p), Palette: "BRW"}
	require.NoError(t, s.CreateRun(ctx, run))
	require.NoError(t, s.WriteFrames(ctx, rec.ID, rec.Frames()))

	last, err := s.LatestFrame(ctx, rec.ID)
	require.NoError(t, err)
	target, err := recording.NewGrid(last.GridType, last.Palette)
	require.NoError(t, err)
	require.NoError(t, recording.Restore(last, recording.Adapt(target)))
	assert.Equal(t, p.StateToBytes(), target.StateToBytes())
}

func TestFrames_SphericalGeometry(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	g, err := grid.NewSpherical(1, 2, 6, 3, "BW")
	require.NoError(t, err)
	require.NoError(t, g.SetSpherical(1, 2, 1, 1))

	rec := recording.NewRecorder(recording.NewFixedGenerator("sphere-1"))
	rec.Capture(recording.Adapt(g))
	run := Run{ID: rec.ID, Model: "shells", GridType: recording.TypeOf(g), Palette: "BW"}
	require.NoError(t, s.CreateRun(ctx, run))
	require.NoError(t, s.WriteFrames(ctx, rec.ID, rec.Frames()))

	got, err := s.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, run.GridType, got.GridType)

	last, err := s.LatestFrame(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, last.GridType.PhiDivisions)
	target, err := recording.NewGrid(last.GridType, last.Palette)
	require.NoError(t, err)
	require.NoError(t, recording.Restore(last, recording.Adapt(target)))
	assert.Equal(t, g.StateToBytes(), target.StateToBytes())
}

func TestRunsReaching(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	frames := recordFrames(t)

	for _, id := range []string{"run-b", "run-a"} {
		require.NoError(t, s.CreateRun(ctx, createTestRun(id, 1)))
		require.NoError(t, s.WriteFrames(ctx, id, frames))
	}
	require.NoError(t, s.CreateRun(ctx, createTestRun("run-c", 2)))
	require.NoError(t, s.WriteFrames(ctx, "run-c", frames[:1]))

	ids, err := s.RunsReaching(ctx, frames[2].Hash)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, ids)

	ids, err = s.RunsReaching(ctx, frames[0].Hash)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b", "run-c"}, ids)

	ids, err = s.RunsReaching(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
