// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// RecordOutcome upserts the fetch outcome for an identifier. One row per
// identifier; a re-run overwrites the previous outcome.
func (s *Store) RecordOutcome(ctx context.Context, out types.FetchOutcome) error {
	attemptsJSON, _ := json.Marshal(out.Attempts)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_outcomes (identifier, status, format, artifact_key, route, reason, attempts, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(identifier) DO UPDATE SET
			status=excluded.status, format=excluded.format,
			artifact_key=excluded.artifact_key, route=excluded.route,
			reason=excluded.reason, attempts=excluded.attempts,
			fetched_at=excluded.fetched_at`,
		out.Identifier, string(out.Status), string(out.Format), out.ArtifactKey,
		out.Route, string(out.Reason), string(attemptsJSON),
		out.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording outcome for %s: %w", out.Identifier, err)
	}
	return nil
}

// Outcomes returns every recorded fetch outcome ordered by identifier.
func (s *Store) Outcomes(ctx context.Context) ([]types.FetchOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identifier, status, format, artifact_key, route, reason, attempts, fetched_at
		 FROM fetch_outcomes ORDER BY identifier`)
	if err != nil {
		return nil, fmt.Errorf("listing outcomes: %w", err)
	}
	defer rows.Close()

	var outs []types.FetchOutcome
	for rows.Next() {
		var out types.FetchOutcome
		var attemptsJSON, fetchedAt string
		if err := rows.Scan(&out.Identifier, (*string)(&out.Status), (*string)(&out.Format),
			&out.ArtifactKey, &out.Route, (*string)(&out.Reason), &attemptsJSON, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		if attemptsJSON != "" {
			if err := json.Unmarshal([]byte(attemptsJSON), &out.Attempts); err != nil {
				return nil, fmt.Errorf("parsing attempts for %s: %w", out.Identifier, err)
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, fetchedAt); err == nil {
			out.FetchedAt = t
		}
		outs = append(outs, out)
	}
	return outs, rows.Err()
}

// Outcome returns the recorded fetch outcome for an identifier. The
// second return is false when no outcome has been recorded.
func (s *Store) Outcome(ctx context.Context, identifier string) (types.FetchOutcome, bool, error) {
	var out types.FetchOutcome
	var attemptsJSON, fetchedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT identifier, status, format, artifact_key, route, reason, attempts, fetched_at
		 FROM fetch_outcomes WHERE identifier = ?`, identifier,
	).Scan(&out.Identifier, (*string)(&out.Status), (*string)(&out.Format),
		&out.ArtifactKey, &out.Route, (*string)(&out.Reason), &attemptsJSON, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.FetchOutcome{}, false, nil
	}
	if err != nil {
		return types.FetchOutcome{}, false, fmt.Errorf("reading outcome for %s: %w", identifier, err)
	}

	if attemptsJSON != "" {
		if err := json.Unmarshal([]byte(attemptsJSON), &out.Attempts); err != nil {
			return types.FetchOutcome{}, false, fmt.Errorf("parsing attempts for %s: %w", identifier, err)
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, fetchedAt); err == nil {
		out.FetchedAt = t
	}
	return out, true, nil
}
