package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

const sourceColumns = `id, user_id, source_type, source_label, content_text, file_path, url, meta, status, created_at`

// AddSource inserts a Source and returns its id. The label is clipped and
// an unknown status is stored as pending.
func (db *DB) AddSource(ctx context.Context, s models.Source) (int64, error) {
	if err := db.EnsureUser(ctx, s.UserID); err != nil {
		return 0, err
	}
	if !s.Status.Valid() {
		s.Status = models.SourcePending
	}
	meta := s.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("store: encode source meta: %w", err)
	}
	res, err := db.q.ExecContext(ctx, `
		INSERT INTO sources (user_id, source_type, source_label, content_text, file_path, url, meta, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.UserID, s.Kind, models.Clip(s.Label, models.MaxSourceLabel), s.Text, s.FilePath, s.URL, string(metaJSON), string(s.Status))
	if err != nil {
		return 0, fmt.Errorf("store: add source: %w", err)
	}
	return res.LastInsertId()
}

// GetSource returns the Source or apperr.ErrNotFound.
func (db *DB) GetSource(ctx context.Context, userID, id int64) (*models.Source, error) {
	row := db.q.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE user_id = ? AND id = ?`, userID, id)
	s, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: source %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get source: %w", err)
	}
	return s, nil
}

// SetSourceStatus updates the status and reports whether a row changed.
func (db *DB) SetSourceStatus(ctx context.Context, userID, id int64, status models.SourceStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("store: invalid source status %q", status)
	}
	res, err := db.q.ExecContext(ctx,
		`UPDATE sources SET status = ? WHERE user_id = ? AND id = ?`, string(status), userID, id)
	if err != nil {
		return false, fmt.Errorf("store: set source status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListSources returns the user's sources, newest first. An empty status
// lists every status.
func (db *DB) ListSources(ctx context.Context, userID int64, status models.SourceStatus, limit int) ([]models.Source, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + sourceColumns + ` FROM sources WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	return db.querySources(ctx, q, args...)
}

// PendingTextSources returns the oldest pending sources that carry text.
func (db *DB) PendingTextSources(ctx context.Context, userID int64, limit int) ([]models.Source, error) {
	if limit < 1 {
		limit = 1
	}
	return db.querySources(ctx, `
		SELECT `+sourceColumns+` FROM sources
		WHERE user_id = ? AND status = 'pending' AND TRIM(content_text) <> ''
		ORDER BY id ASC LIMIT ?
	`, userID, limit)
}

// PendingSourceCount counts the user's pending sources.
func (db *DB) PendingSourceCount(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := db.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sources WHERE user_id = ? AND status = 'pending'`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: pending source count: %w", err)
	}
	return n, nil
}

func (db *DB) querySources(ctx context.Context, q string, args ...any) ([]models.Source, error) {
	rows, err := db.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list sources: %w", err)
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan source: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(r rowScanner) (*models.Source, error) {
	var (
		s      models.Source
		meta   string
		status string
	)
	if err := r.Scan(&s.ID, &s.UserID, &s.Kind, &s.Label, &s.Text, &s.FilePath, &s.URL, &meta, &status, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Status = models.SourceStatus(status)
	if strings.TrimSpace(meta) != "" {
		// Unparseable metadata is dropped rather than failing the read.
		_ = json.Unmarshal([]byte(meta), &s.Meta)
	}
	return &s, nil
}
