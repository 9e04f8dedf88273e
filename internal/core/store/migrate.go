package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS response_cache (
		key TEXT PRIMARY KEY,
		service TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		content_type TEXT,
		body BLOB,
		stored_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_response_cache_expires ON response_cache(expires_at);`,
	`CREATE TABLE IF NOT EXISTS call_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		call_id TEXT NOT NULL,
		service TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		method TEXT NOT NULL,
		status_code INTEGER,
		attempts INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		message TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_call_journal_service ON call_journal(service, started_at);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
