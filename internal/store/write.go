package store

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteRun inserts a run and its replacements in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a duplicate ID is
// silently ignored and inserted reports false.
//
// The run's source literal is stored as JSON with sorted keys for
// deterministic replay.
func (s *Store) WriteRun(ctx context.Context, run Run) (inserted bool, err error) {
	if run.ID == "" {
		return false, fmt.Errorf("write run: id is required")
	}
	if run.InputFingerprint == "" {
		return false, fmt.Errorf("write run %s: input fingerprint is required", run.ID)
	}

	sourceJSON, err := marshalSource(run.Source)
	if err != nil {
		return false, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO runs
			(id, seq, document, source, strict, input_fingerprint, output_fingerprint,
			 output, error, encoding_version, tool_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			run.ID,
			run.Seq,
			run.Document,
			sourceJSON,
			boolToInt(run.Strict),
			run.InputFingerprint,
			run.OutputFingerprint,
			run.Output,
			run.Error,
			run.EncodingVersion,
			run.ToolVersion,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		inserted = true

		for i, rep := range run.Replacements {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO replacements (run_id, position, source, depth)
				VALUES (?, ?, ?, ?)
			`, run.ID, i, rep.Source, rep.Depth)
			if err != nil {
				return fmt.Errorf("replacement %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("write run %s: %w", run.ID, err)
	}
	return inserted, nil
}

// DeleteRun removes a run and, through the foreign key, its replacements.
// Returns ErrNotFound if no run has the ID.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrNotFound)
	}
	return nil
}
