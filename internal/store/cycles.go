package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CycleRecord is one row of reconciliation history.
type CycleRecord struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	Fetched    int       `json:"fetched"`
	Appended   int       `json:"appended"`
	Replaced   int       `json:"replaced"`
	Pushed     int       `json:"pushed"`
	PushFailed int       `json:"push_failed"`
	Error      string    `json:"error,omitempty"`
}

// Duration returns how long the cycle took.
func (c CycleRecord) Duration() time.Duration {
	return c.FinishedAt.Sub(c.StartedAt)
}

// RecordCycle appends a cycle to the history.
func (s *Store) RecordCycle(ctx context.Context, c CycleRecord) error {
	if c.ID == "" {
		return fmt.Errorf("cycle id is required")
	}

	var errText sql.NullString
	if c.Error != "" {
		errText = sql.NullString{String: c.Error, Valid: true}
	}

	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO sync_cycles (
		id, started_at, finished_at, outcome,
		fetched, appended, replaced, pushed, push_failed, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.StartedAt.UTC().Format(timeLayout),
		c.FinishedAt.UTC().Format(timeLayout),
		c.Outcome,
		c.Fetched, c.Appended, c.Replaced, c.Pushed, c.PushFailed,
		errText,
	)
	if err != nil {
		return fmt.Errorf("failed to record cycle: %w", err)
	}
	return nil
}

// RecentCycles returns up to limit cycles, newest first.
func (s *Store) RecentCycles(ctx context.Context, limit int) ([]CycleRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, started_at, finished_at, outcome,
	       fetched, appended, replaced, pushed, push_failed, error
	FROM sync_cycles
	ORDER BY started_at DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []CycleRecord
	for rows.Next() {
		var (
			c                 CycleRecord
			started, finished string
			errText           sql.NullString
		)
		if err := rows.Scan(
			&c.ID, &started, &finished, &c.Outcome,
			&c.Fetched, &c.Appended, &c.Replaced, &c.Pushed, &c.PushFailed,
			&errText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		c.StartedAt, _ = time.Parse(timeLayout, started)
		c.FinishedAt, _ = time.Parse(timeLayout, finished)
		c.Error = errText.String
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycles: %w", err)
	}
	return cycles, nil
}
