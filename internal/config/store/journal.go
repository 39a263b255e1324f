package store

import (
	"context"
	"fmt"
	"time"
)

// Transition is one journaled PiP mode event: either a genuine flip
// (cause "layout") or a re-application after a conference join
// (cause "joined").
type Transition struct {
	ID           int64
	Enabled      bool
	WindowWidth  float64
	WindowHeight float64
	Cause        string
	CreatedAt    time.Time
}

const defaultTransitionLimit = 50

// RecordTransition appends a transition to the journal.
func (s *Store) RecordTransition(ctx context.Context, t Transition) error {
	if s.readOnly {
		return fmt.Errorf("config: record transition: store opened read-only")
	}
	cause := t.Cause
	if cause == "" {
		cause = "layout"
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO pip_transitions (instance_name, enabled, window_width, window_height, cause)
		VALUES (?, ?, ?, ?, ?)
	`, s.instanceName, boolToInt(t.Enabled), t.WindowWidth, t.WindowHeight, cause); err != nil {
		return fmt.Errorf("config: record transition: %w", err)
	}
	return nil
}

// RecentTransitions returns up to limit journal entries, newest first.
// A non-positive limit selects the default page size.
func (s *Store) RecentTransitions(ctx context.Context, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = defaultTransitionLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, enabled, window_width, window_height, cause, created_at
		FROM pip_transitions
		WHERE instance_name = ?
		ORDER BY id DESC
		LIMIT ?
	`, s.instanceName, limit)
	if err != nil {
		return nil, fmt.Errorf("config: query transitions: %w", err)
	}
	defer rows.Close()

	var result []Transition
	for rows.Next() {
		var (
			t       Transition
			enabled int
			created string
		)
		if err := rows.Scan(&t.ID, &enabled, &t.WindowWidth, &t.WindowHeight, &t.Cause, &created); err != nil {
			return nil, fmt.Errorf("config: scan transition row: %w", err)
		}
		t.Enabled = enabled != 0
		t.CreatedAt = parseTimestamp(created)
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("config: iterate transition rows: %w", err)
	}

	return result, nil
}

// CountTransitions returns the number of journal entries for this instance.
func (s *Store) CountTransitions(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pip_transitions WHERE instance_name = ?
	`, s.instanceName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("config: count transitions: %w", err)
	}
	return n, nil
}

// PruneTransitions deletes journal entries older than the cutoff.
func (s *Store) PruneTransitions(ctx context.Context, before time.Time) (int64, error) {
	if s.readOnly {
		return 0, fmt.Errorf("config: prune transitions: store opened read-only")
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM pip_transitions
		WHERE instance_name = ? AND created_at < ?
	`, s.instanceName, before.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("config: prune transitions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTimestamp(raw string) time.Time {
	for _, format := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if ts, err := time.Parse(format, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
