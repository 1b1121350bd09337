package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/mjgrid/internal/recording"
)

// CreateRun inserts a run record. A new run starts in StatusRunning unless
// run.Status says otherwise.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	status := run.Status
	if status == "" {
		status = StatusRunning
	}
	gt := run.GridType
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, model, seed, grid_type, mx, my, mz, r_min, r_depth, theta, phi, palette, steps, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Model,
		int64(run.Seed),
		string(gt.Kind),
		gt.MX, gt.MY, gt.MZ,
		gt.RMin, gt.RDepth, gt.ThetaDivisions, gt.PhiDivisions,
		run.Palette,
		run.Steps,
		status,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun records the final step count and outcome of a run.
func (s *Store) FinishRun(ctx context.Context, id string, steps int, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET steps = ?, status = ? WHERE id = ?
	`, steps, status, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// WriteFrame inserts one frame of a run.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting a seq is ignored.
func (s *Store) WriteFrame(ctx context.Context, runID string, f recording.Frame) error {
	return writeFrame(ctx, s.db, runID, f)
}

// WriteFrames inserts every frame in one transaction.
func (s *Store) WriteFrames(ctx context.Context, runID string, frames []recording.Frame) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write frames: %w", err)
	}
	defer tx.Rollback()

	for _, f := range frames {
		if err := writeFrame(ctx, tx, runID, f); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write frames: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeFrame(ctx context.Context, db execer, runID string, f recording.Frame) error {
	gt := f.GridType
	hash := f.Hash
	if hash == "" {
		hash = recording.Hash(f.State)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO frames
		(run_id, seq, step, grid_type, mx, my, mz, r_min, r_depth, theta, phi, palette, state, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		f.Seq,
		f.Step,
		string(gt.Kind),
		gt.MX, gt.MY, gt.MZ,
		gt.RMin, gt.RDepth, gt.ThetaDivisions, gt.PhiDivisions,
		f.Palette,
		f.State,
		hash,
	)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", f.Seq, err)
	}
	return nil
}
