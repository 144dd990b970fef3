package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/ioa/internal/trace"
)

// Append writes one journal entry.
//
// The run row is created on first sight of its id; a run_start entry also
// records the run's detail. Appending an entry that already exists for the
// same (run_id, seq) is a no-op, so replaying a journal is safe.
func (s *Store) Append(ctx context.Context, e trace.Entry) error {
	if e.RunID == "" {
		return fmt.Errorf("write entry: empty run id")
	}

	delivered, err := marshalDelivered(e.Delivered)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write entry: begin: %w", err)
	}
	defer tx.Rollback()

	if err := writeRun(ctx, tx, e); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (
			run_id, seq, op, aid, target, action, param,
			key, output, input, result, delivered, detail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		e.RunID,
		e.Seq,
		string(e.Op),
		e.Aid,
		e.Target,
		e.Action,
		nullInt64(e.Param),
		e.Key,
		e.Output,
		e.Input,
		e.Result,
		delivered,
		e.Detail,
	)
	if err != nil {
		return fmt.Errorf("write entry %s/%d: %w", e.RunID, e.Seq, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write entry: commit: %w", err)
	}
	return nil
}

func writeRun(ctx context.Context, tx *sql.Tx, e trace.Entry) error {
	query := `INSERT INTO runs (id, detail) VALUES (?, '') ON CONFLICT(id) DO NOTHING`
	args := []any{e.RunID}
	if e.Op == trace.OpRunStart {
		query = `INSERT INTO runs (id, detail) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET detail = excluded.detail`
		args = append(args, e.Detail)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write run %s: %w", e.RunID, err)
	}
	return nil
}

func marshalDelivered(eps []trace.Endpoint) (string, error) {
	if len(eps) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(eps)
	if err != nil {
		return "", fmt.Errorf("marshal delivered: %w", err)
	}
	return string(data), nil
}

func unmarshalDelivered(s string) ([]trace.Endpoint, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var eps []trace.Endpoint
	if err := json.Unmarshal([]byte(s), &eps); err != nil {
		return nil, fmt.Errorf("unmarshal delivered: %w", err)
	}
	return eps, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
