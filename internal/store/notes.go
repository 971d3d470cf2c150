package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

const noteColumns = `id, user_id, type, front, back, cloze, extra, tags, source_id, origin, created_at`

// AddNote inserts a Note and returns its id. Tags are normalized on write.
func (db *DB) AddNote(ctx context.Context, n models.Note) (int64, error) {
	if err := db.EnsureUser(ctx, n.UserID); err != nil {
		return 0, err
	}
	if n.Origin == "" {
		n.Origin = "unknown"
	}
	res, err := db.q.ExecContext(ctx, `
		INSERT INTO notes (user_id, type, front, back, cloze, extra, tags, source_id, origin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.UserID, string(models.ParseNoteType(string(n.Type))), n.Front, n.Back, n.Cloze, n.Extra,
		encodeTags(n.Tags), n.SourceID, n.Origin)
	if err != nil {
		return 0, fmt.Errorf("store: add note: %w", err)
	}
	return res.LastInsertId()
}

// GetNote returns the Note or apperr.ErrNotFound.
func (db *DB) GetNote(ctx context.Context, userID, id int64) (*models.Note, error) {
	row := db.q.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE user_id = ? AND id = ?`, userID, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: note %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	return n, nil
}

// ListNotes returns every note of the user in insertion order.
func (db *DB) ListNotes(ctx context.Context, userID int64) ([]models.Note, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// CountNotes counts the user's notes.
func (db *DB) CountNotes(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := db.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count notes: %w", err)
	}
	return n, nil
}

// UpdateNoteFields overwrites the card fields and origin of a note.
func (db *DB) UpdateNoteFields(ctx context.Context, userID, id int64, f models.CardFields, origin string) error {
	res, err := db.q.ExecContext(ctx, `
		UPDATE notes SET type = ?, front = ?, back = ?, cloze = ?, extra = ?, tags = ?, origin = ?
		WHERE user_id = ? AND id = ?
	`, string(models.ParseNoteType(string(f.Type))), f.Front, f.Back, f.Cloze, f.Extra, encodeTags(f.Tags), origin, userID, id)
	if err != nil {
		return fmt.Errorf("store: update note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: note %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ClearNotes deletes every note of the user. Sources are kept.
func (db *DB) ClearNotes(ctx context.Context, userID int64) (int64, error) {
	res, err := db.q.ExecContext(ctx, `DELETE FROM notes WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("store: clear notes: %w", err)
	}
	return res.RowsAffected()
}

func scanNote(r rowScanner) (*models.Note, error) {
	var (
		n    models.Note
		typ  string
		tags string
	)
	if err := r.Scan(&n.ID, &n.UserID, &typ, &n.Front, &n.Back, &n.Cloze, &n.Extra, &tags, &n.SourceID, &n.Origin, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = models.NoteType(typ)
	n.Tags = decodeTags(tags)
	return &n, nil
}

func encodeTags(tags []string) string {
	b, _ := json.Marshal(models.NormalizeTags(tags))
	return string(b)
}

func decodeTags(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}
