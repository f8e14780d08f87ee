package store

import (
	"context"
	"database/sql"
	"fmt"
)

// RunRecord is one recorded scenario run.
type RunRecord struct {
	ID            string
	Seq           int64
	Scenario      string
	ConfigPath    string
	LastIteration int
	Pass          bool

	// ErrorKind and Error are set when the run could not be completed.
	ErrorKind string
	Error     string

	// Failures are the assertion failure messages of a completed run.
	Failures []string

	// Scores maps score item to iteration to value.
	Scores map[string]map[int]float64

	// Modes maps main mode to trip count.
	Modes map[string]int

	// SnapshotHash fingerprints the observed values, so runs with identical
	// outputs can be spotted without comparing scores.
	SnapshotHash string
}

// WriteRun inserts a run with its scores and modes in one transaction.
// An empty ID is filled from the store's generator and seq is assigned as
// one past the highest recorded seq. Returns the stored ID and seq.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) (string, int64, error) {
	if rec.Scenario == "" {
		return "", 0, fmt.Errorf("write run: scenario is required")
	}
	if rec.ID == "" {
		rec.ID = s.ids.Generate()
	}

	failures, err := marshalFailures(rec.Failures)
	if err != nil {
		return "", 0, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return "", 0, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, scenario, config_path, last_iteration, pass, error_kind, error, failures, snapshot_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		seq,
		rec.Scenario,
		rec.ConfigPath,
		rec.LastIteration,
		rec.Pass,
		rec.ErrorKind,
		rec.Error,
		failures,
		rec.SnapshotHash,
	)
	if err != nil {
		return "", 0, fmt.Errorf("write run: %w", err)
	}

	if err := writeScores(ctx, tx, rec.ID, rec.Scores); err != nil {
		return "", 0, err
	}
	if err := writeModes(ctx, tx, rec.ID, rec.Modes); err != nil {
		return "", 0, err
	}

	if err := tx.Commit(); err != nil {
		return "", 0, fmt.Errorf("write run: commit: %w", err)
	}
	return rec.ID, seq, nil
}

func writeScores(ctx context.Context, tx *sql.Tx, runID string, scores map[string]map[int]float64) error {
	if len(scores) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_scores (run_id, item, iteration, value)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write scores: %w", err)
	}
	defer stmt.Close()

	for item, series := range scores {
		for it, v := range series {
			if _, err := stmt.ExecContext(ctx, runID, item, it, v); err != nil {
				return fmt.Errorf("write scores: %s iteration %d: %w", item, it, err)
			}
		}
	}
	return nil
}

func writeModes(ctx context.Context, tx *sql.Tx, runID string, modes map[string]int) error {
	if len(modes) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_modes (run_id, mode, count)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write modes: %w", err)
	}
	defer stmt.Close()

	for mode, count := range modes {
		if _, err := stmt.ExecContext(ctx, runID, mode, count); err != nil {
			return fmt.Errorf("write modes: %s: %w", mode, err)
		}
	}
	return nil
}
