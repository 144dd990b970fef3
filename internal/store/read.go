package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ioa/internal/trace"
)

// ErrRunNotFound is returned when a run id has no journal.
var ErrRunNotFound = errors.New("run not found")

// Runs lists journaled runs in the order they were first written.
func (s *Store) Runs(ctx context.Context) ([]trace.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.detail, COUNT(e.seq)
		FROM runs r
		LEFT JOIN entries e ON e.run_id = r.id
		GROUP BY r.ord, r.id, r.detail
		ORDER BY r.ord ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []trace.Run
	for rows.Next() {
		var r trace.Run
		if err := rows.Scan(&r.ID, &r.Detail, &r.Entries); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the id of the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY ord DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	return id, nil
}

// Entries returns a run's journal in seq order.
// Returns ErrRunNotFound if the run was never written.
func (s *Store) Entries(ctx context.Context, runID string) ([]trace.Entry, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, op, aid, target, action, param,
		       key, output, input, result, delivered, detail
		FROM entries
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []trace.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (trace.Entry, error) {
	var (
		e         trace.Entry
		op        string
		param     sql.NullInt64
		delivered string
	)
	err := rows.Scan(
		&e.RunID, &e.Seq, &op, &e.Aid, &e.Target, &e.Action, &param,
		&e.Key, &e.Output, &e.Input, &e.Result, &delivered, &e.Detail,
	)
	if err != nil {
		return trace.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Op = trace.Op(op)
	if param.Valid {
		v := param.Int64
		e.Param = &v
	}
	e.Delivered, err = unmarshalDelivered(delivered)
	if err != nil {
		return trace.Entry{}, fmt.Errorf("scan entry %s/%d: %w", e.RunID, e.Seq, err)
	}
	return e, nil
}
