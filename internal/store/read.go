package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mjgrid/internal/recording"
)

const runColumns = `id, model, seed, grid_type, mx, my, mz, r_min, r_depth, theta, phi, palette, steps, status, created_at`

const frameColumns = `seq, step, grid_type, mx, my, mz, r_min, r_depth, theta, phi, palette, state, hash`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run ordered by id.
//
// Returns an empty slice (not nil) when the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunsReaching returns the ids of runs with a frame whose state hashes to
// hash, ordered by id.
func (s *Store) RunsReaching(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT run_id
		FROM frames
		WHERE hash = ?
		ORDER BY run_id COLLATE BINARY ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query frames by hash: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run ids: %w", err)
	}
	return ids, nil
}

// ReadFrames returns the frames of a run in capture order.
//
// Returns an empty slice (not nil) when the run has no frames.
func (s *Store) ReadFrames(ctx context.Context, runID string) ([]recording.Frame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+frameColumns+`
		FROM frames
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	frames := []recording.Frame{}
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// ReadFrame returns frame seq of a run.
func (s *Store) ReadFrame(ctx context.Context, runID string, seq int) (recording.Frame, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+frameColumns+`
		FROM frames
		WHERE run_id = ? AND seq = ?
	`, runID, seq)
	return frameResult(row, runID)
}

// LatestFrame returns the last captured frame of a run.
func (s *Store) LatestFrame(ctx context.Context, runID string) (recording.Frame, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+frameColumns+`
		FROM frames
		WHERE run_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, runID)
	return frameResult(row, runID)
}

func frameResult(row *sql.Row, runID string) (recording.Frame, error) {
	f, err := scanFrame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return recording.Frame{}, fmt.Errorf("run %s: %w", runID, ErrFrameNotFound)
	}
	if err != nil {
		return recording.Frame{}, fmt.Errorf("read frame: %w", err)
	}
	return f, nil
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var seed int64
	var kind string
	gt := &run.GridType
	err := row.Scan(
		&run.ID,
		&run.Model,
		&seed,
		&kind,
		&gt.MX, &gt.MY, &gt.MZ,
		&gt.RMin, &gt.RDepth, &gt.ThetaDivisions, &gt.PhiDivisions,
		&run.Palette,
		&run.Steps,
		&run.Status,
		&run.CreatedAt,
	)
	if err != nil {
		return Run{}, err
	}
	run.Seed = uint64(seed)
	if gt.Kind, err = recording.ParseKind(kind); err != nil {
		return Run{}, err
	}
	return run, nil
}

func scanFrame(row scanner) (recording.Frame, error) {
	var f recording.Frame
	var kind string
	gt := &f.GridType
	err := row.Scan(
		&f.Seq,
		&f.Step,
		&kind,
		&gt.MX, &gt.MY, &gt.MZ,
		&gt.RMin, &gt.RDepth, &gt.ThetaDivisions, &gt.PhiDivisions,
		&f.Palette,
		&f.State,
		&f.Hash,
	)
	if err != nil {
		return recording.Frame{}, err
	}
	if gt.Kind, err = recording.ParseKind(kind); err != nil {
		return recording.Frame{}, err
	}
	return f, nil
}
