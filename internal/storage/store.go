// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("state store closed")

	// ErrSchemaVersion is returned for a database written by a newer client.
	ErrSchemaVersion = errors.New("unsupported state schema version")
)

// =============================================================================
// TYPES
// =============================================================================

// UploadStatus is the outcome of an upload attempt.
type UploadStatus string

const (
	UploadSucceeded UploadStatus = "uploaded"
	UploadFailed    UploadStatus = "failed"
)

// UploadRecord is one attempted upload.
type UploadRecord struct {
	ID        int64
	Filename  string
	SessionID string
	MimeType  string
	Size      int64
	Status    UploadStatus
	Error     string
	SourceURL string
	CreatedAt time.Time
}

// =============================================================================
// STATE STORE
// =============================================================================

// StateStore persists client state in a SQLite database.
type StateStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// DefaultPath returns ~/.studyhall/state.db.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".studyhall", "state.db")
}

// Open opens or creates the database at path.
func Open(path string) (*StateStore, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &StateStore{db: db, path: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *StateStore) initSchema() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return err
	}

	var raw string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec(`INSERT INTO metadata (key, value) VALUES ('schema_version', ?)`,
			strconv.Itoa(schemaVersion))
		return err
	case err != nil:
		return err
	}

	version, err := strconv.Atoi(raw)
	if err != nil || version > schemaVersion {
		return fmt.Errorf("%w: %s", ErrSchemaVersion, raw)
	}
	return nil
}

// Path returns the database file path.
func (s *StateStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *StateStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *StateStore) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

// =============================================================================
// LAST SESSION
// =============================================================================

func normalizeBaseURL(baseURL string) string {
	return strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
}

// LastSession returns the session last selected against baseURL, or "".
func (s *StateStore) LastSession(ctx context.Context, baseURL string) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}

	var id string
	err = db.QueryRowContext(ctx,
		`SELECT session_id FROM last_session WHERE base_url = ?`, normalizeBaseURL(baseURL)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read last session: %w", err)
	}
	return id, nil
}

// SetLastSession remembers sessionID for baseURL. An empty id forgets it.
func (s *StateStore) SetLastSession(ctx context.Context, baseURL, sessionID string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	if sessionID == "" {
		_, err = db.ExecContext(ctx, `DELETE FROM last_session WHERE base_url = ?`, normalizeBaseURL(baseURL))
	} else {
		_, err = db.ExecContext(ctx, `
			INSERT INTO last_session (base_url, session_id, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(base_url) DO UPDATE SET session_id = excluded.session_id, updated_at = excluded.updated_at`,
			normalizeBaseURL(baseURL), sessionID, s.now().UnixMilli())
	}
	if err != nil {
		return fmt.Errorf("save last session: %w", err)
	}
	return nil
}

// =============================================================================
// UPLOAD HISTORY
// =============================================================================

// RecordUpload appends rec to the upload history and returns its id.
// A zero CreatedAt is set to the current time.
func (s *StateStore) RecordUpload(ctx context.Context, rec UploadRecord) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.Status == "" {
		rec.Status = UploadSucceeded
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO uploads (filename, session_id, mime_type, size, status, error, source_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Filename, rec.SessionID, rec.MimeType, rec.Size, string(rec.Status),
		rec.Error, rec.SourceURL, rec.CreatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("record upload: %w", err)
	}
	return res.LastInsertId()
}

// Uploads returns up to limit records, newest first. A non-positive limit
// returns all records.
func (s *StateStore) Uploads(ctx context.Context, limit int) ([]UploadRecord, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, filename, session_id, mime_type, size, status, error, source_url, created_at
		FROM uploads ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var out []UploadRecord
	for rows.Next() {
		var (
			rec     UploadRecord
			status  string
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.SessionID, &rec.MimeType, &rec.Size,
			&status, &rec.Error, &rec.SourceURL, &created); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		rec.Status = UploadStatus(status)
		rec.CreatedAt = time.UnixMilli(created)
		out = append(out, rec)
	}
	return out, rows.Err()
}
