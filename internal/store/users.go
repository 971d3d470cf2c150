package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/ansuz/internal/models"
)

// EnsureUser creates the settings row for userID if it does not exist.
func (db *DB) EnsureUser(ctx context.Context, userID int64) error {
	if _, err := db.q.ExecContext(ctx, `INSERT OR IGNORE INTO users (user_id) VALUES (?)`, userID); err != nil {
		return fmt.Errorf("store: ensure user: %w", err)
	}
	return nil
}

// GetUser returns the settings row for userID, creating it when missing.
func (db *DB) GetUser(ctx context.Context, userID int64) (models.User, error) {
	if err := db.EnsureUser(ctx, userID); err != nil {
		return models.User{}, err
	}
	u := models.User{ID: userID}
	err := db.q.QueryRowContext(ctx,
		`SELECT deck_name, mochi_api_key, mochi_deck_id FROM users WHERE user_id = ?`, userID,
	).Scan(&u.DeckName, &u.MochiAPIKey, &u.MochiDeckID)
	if errors.Is(err, sql.ErrNoRows) {
		return u, nil
	}
	if err != nil {
		return models.User{}, fmt.Errorf("store: get user: %w", err)
	}
	return u, nil
}

// SetDeckName stores the export deck name for userID.
func (db *DB) SetDeckName(ctx context.Context, userID int64, name string) error {
	return db.setUserColumn(ctx, userID, "deck_name", name)
}

// SetMochiAPIKey stores the Mochi API key for userID.
func (db *DB) SetMochiAPIKey(ctx context.Context, userID int64, key string) error {
	return db.setUserColumn(ctx, userID, "mochi_api_key", key)
}

// SetMochiDeckID stores the selected Mochi deck for userID.
func (db *DB) SetMochiDeckID(ctx context.Context, userID int64, deckID string) error {
	return db.setUserColumn(ctx, userID, "mochi_deck_id", deckID)
}

// setUserColumn is only called with the fixed column names above.
func (db *DB) setUserColumn(ctx context.Context, userID int64, column, value string) error {
	if err := db.EnsureUser(ctx, userID); err != nil {
		return err
	}
	if _, err := db.q.ExecContext(ctx, `UPDATE users SET `+column+` = ? WHERE user_id = ?`, value, userID); err != nil {
		return fmt.Errorf("store: set %s: %w", column, err)
	}
	return nil
}
