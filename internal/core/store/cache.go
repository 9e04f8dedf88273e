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

// GetResponse returns a persisted response for key if it is still fresh.
// The second result is false on a miss or an expired entry.
func (s *Store) GetResponse(ctx context.Context, key string) (*core.Response, bool, error) {
	if s == nil || s.DB == nil {
		return nil, false, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, errors.New("cache key is required")
	}

	var (
		service     string
		endpoint    string
		statusCode  int
		contentType sql.NullString
		body        []byte
		storedAt    int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT service, endpoint, status_code, content_type, body, stored_at
		FROM response_cache
		WHERE key = ? AND expires_at > ?
	`, key, time.Now().UTC().Unix())

	if err := row.Scan(&service, &endpoint, &statusCode, &contentType, &body, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetch cached response: %w", err)
	}

	return &core.Response{
		Service:     service,
		Endpoint:    endpoint,
		StatusCode:  statusCode,
		ContentType: contentType.String,
		Body:        body,
		FromCache:   true,
		ResolvedAt:  time.Unix(storedAt, 0).UTC(),
	}, true, nil
}

// PutResponse stores a response under key with a TTL.
func (s *Store) PutResponse(ctx context.Context, key string, resp *core.Response, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 || resp == nil {
		return nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key is required")
	}

	now := time.Now().UTC()
	expires := now.Add(ttl)

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO response_cache (key, service, endpoint, status_code, content_type, body, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			service = excluded.service,
			endpoint = excluded.endpoint,
			status_code = excluded.status_code,
			content_type = excluded.content_type,
			body = excluded.body,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at
	`, key, resp.Service, resp.Endpoint, resp.StatusCode, resp.ContentType, resp.Body, now.Unix(), expires.Unix())
	if err != nil {
		return fmt.Errorf("store cached response: %w", err)
	}

	return nil
}

// PruneExpired removes entries whose TTL has passed and returns the count.
func (s *Store) PruneExpired(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM response_cache WHERE expires_at <= ?`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune cached responses: %w", err)
	}

	return result.RowsAffected()
}

// ClearResponses drops every persisted cache entry.
func (s *Store) ClearResponses(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM response_cache`); err != nil {
		return fmt.Errorf("clear cached responses: %w", err)
	}
	return nil
}
