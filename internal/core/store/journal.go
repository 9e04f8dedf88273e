package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quotaflow/quotaflow/internal/core"
)

// JournalQuery filters the call journal listing.
type JournalQuery struct {
	Service string
	Limit   int
}

// Record appends one executed call to the journal.
func (s *Store) Record(ctx context.Context, entry core.JournalEntry) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO call_journal (call_id, service, endpoint, method, status_code, attempts, outcome, message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.CallID, entry.Service, entry.Endpoint, entry.Method, entry.StatusCode, entry.Attempts,
		entry.Outcome, entry.Message, entry.StartedAt.UTC().Unix(), entry.FinishedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}

	return nil
}

// ListJournal returns recent journal entries, newest first.
func (s *Store) ListJournal(ctx context.Context, query JournalQuery) ([]core.JournalEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}

	service := strings.TrimSpace(query.Service)

	var (
		rows *sql.Rows
		err  error
	)
	if service != "" {
		rows, err = s.DB.QueryContext(ctx, `
			SELECT call_id, service, endpoint, method, status_code, attempts, outcome, message, started_at, finished_at
			FROM call_journal
			WHERE service = ?
			ORDER BY started_at DESC, id DESC
			LIMIT ?
		`, service, limit)
	} else {
		rows, err = s.DB.QueryContext(ctx, `
			SELECT call_id, service, endpoint, method, status_code, attempts, outcome, message, started_at, finished_at
			FROM call_journal
			ORDER BY started_at DESC, id DESC
			LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var entries []core.JournalEntry
	for rows.Next() {
		var (
			entry      core.JournalEntry
			statusCode sql.NullInt64
			message    sql.NullString
			startedAt  int64
			finishedAt int64
		)
		if err := rows.Scan(&entry.CallID, &entry.Service, &entry.Endpoint, &entry.Method,
			&statusCode, &entry.Attempts, &entry.Outcome, &message, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entry.StatusCode = int(statusCode.Int64)
		entry.Message = message.String
		entry.StartedAt = time.Unix(startedAt, 0).UTC()
		entry.FinishedAt = time.Unix(finishedAt, 0).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}

	return entries, nil
}
