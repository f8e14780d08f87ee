package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// ListRuns returns the runs of one scenario, or of all scenarios when
// scenario is empty. Results are ordered by seq ASC, id ASC COLLATE BINARY.
// Scores and modes are not loaded; see ReadScores and ReadModes.
//
// Returns an empty slice (not nil) if no runs are recorded.
func (s *Store) ListRuns(ctx context.Context, scenario string) ([]RunRecord, error) {
	query := `
		SELECT id, seq, scenario, config_path, last_iteration, pass, error_kind, error, failures, snapshot_hash
		FROM runs
	`
	var args []any
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run including its scores and modes.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, scenario, config_path, last_iteration, pass, error_kind, error, failures, snapshot_hash
		FROM runs
		WHERE id = ?
	`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunRecord{}, err
	}

	rec.Scores, err = s.readAllScores(ctx, id)
	if err != nil {
		return RunRecord{}, err
	}
	rec.Modes, err = s.ReadModes(ctx, id)
	if err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

// LastPassingRun returns the most recent passing run of a scenario.
func (s *Store) LastPassingRun(ctx context.Context, scenario string) (RunRecord, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM runs
		WHERE scenario = ? AND pass = 1
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, scenario).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: no passing run of %s", ErrRunNotFound, scenario)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("query last passing run: %w", err)
	}
	return s.ReadRun(ctx, id)
}

// ReadScores returns iteration -> value for one score item of a run.
// Returns an empty map (not nil) if nothing was recorded.
func (s *Store) ReadScores(ctx context.Context, runID, item string) (map[int]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT iteration, value FROM run_scores
		WHERE run_id = ? AND item = ?
		ORDER BY iteration ASC
	`, runID, item)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	out := make(map[int]float64)
	for rows.Next() {
		var (
			it int
			v  float64
		)
		if err := rows.Scan(&it, &v); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out[it] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return out, nil
}

func (s *Store) readAllScores(ctx context.Context, runID string) (map[string]map[int]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item, iteration, value FROM run_scores
		WHERE run_id = ?
		ORDER BY item COLLATE BINARY ASC, iteration ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[int]float64)
	for rows.Next() {
		var (
			item string
			it   int
			v    float64
		)
		if err := rows.Scan(&item, &it, &v); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if out[item] == nil {
			out[item] = make(map[int]float64)
		}
		out[item][it] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return out, nil
}

// ReadModes returns mode -> trip count for a run.
// Returns an empty map (not nil) if nothing was recorded.
func (s *Store) ReadModes(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mode, count FROM run_modes
		WHERE run_id = ?
		ORDER BY mode COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query modes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			mode  string
			count int
		)
		if err := rows.Scan(&mode, &count); err != nil {
			return nil, fmt.Errorf("scan mode: %w", err)
		}
		out[mode] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modes: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		rec      RunRecord
		failures string
	)
	err := row.Scan(
		&rec.ID,
		&rec.Seq,
		&rec.Scenario,
		&rec.ConfigPath,
		&rec.LastIteration,
		&rec.Pass,
		&rec.ErrorKind,
		&rec.Error,
		&failures,
		&rec.SnapshotHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, err
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	rec.Failures, err = unmarshalFailures(failures)
	if err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}
