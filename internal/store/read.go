package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const runColumns = `id, seq, document, source, strict, input_fingerprint, output_fingerprint,
	output, error, encoding_version, tool_version`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadRun returns the run with the given ID, including its replacements.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	run.Replacements, err = s.readReplacements(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns all runs with deterministic ordering:
// ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC`)
}

// ListRunsForDocument returns the runs of one document, ordered like ListRuns.
func (s *Store) ListRunsForDocument(ctx context.Context, document string) ([]Run, error) {
	return s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs
		WHERE document = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC`, document)
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	// Close before issuing more queries on the single connection.
	rows.Close()

	for i := range runs {
		runs[i].Replacements, err = s.readReplacements(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) readReplacements(ctx context.Context, runID string) ([]Replacement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, depth FROM replacements
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query replacements for %s: %w", runID, err)
	}
	defer rows.Close()

	reps := []Replacement{}
	for rows.Next() {
		var rep Replacement
		if err := rows.Scan(&rep.Source, &rep.Depth); err != nil {
			return nil, fmt.Errorf("scan replacement: %w", err)
		}
		reps = append(reps, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replacements: %w", err)
	}
	return reps, nil
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		sourceJSON string
		strict     int
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Document,
		&sourceJSON,
		&strict,
		&run.InputFingerprint,
		&run.OutputFingerprint,
		&run.Output,
		&run.Error,
		&run.EncodingVersion,
		&run.ToolVersion,
	)
	if err != nil {
		return Run{}, err
	}
	run.Strict = strict != 0

	run.Source, err = unmarshalSource(sourceJSON)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}
