package store

import (
	"context"
	"fmt"

	"github.com/starford/ansuz/internal/models"
)

// ListLinks returns every sync link of the user.
func (db *DB) ListLinks(ctx context.Context, userID int64) ([]models.SyncLink, error) {
	rows, err := db.q.QueryContext(ctx, `
		SELECT id, user_id, note_id, mochi_card_id, mochi_deck_id, local_hash, remote_hash, remote_updated_at, last_synced_at
		FROM mochi_sync WHERE user_id = ? ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list links: %w", err)
	}
	defer rows.Close()

	var out []models.SyncLink
	for rows.Next() {
		var l models.SyncLink
		if err := rows.Scan(&l.ID, &l.UserID, &l.NoteID, &l.CardID, &l.DeckID, &l.LocalHash, &l.RemoteHash, &l.RemoteUpdatedAt, &l.LastSyncedAt); err != nil {
			return nil, fmt.Errorf("store: scan link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertLink replaces any link of the same note or the same card with l,
// keeping both one-to-one constraints intact.
func (db *DB) UpsertLink(ctx context.Context, l models.SyncLink) error {
	return db.InTx(ctx, func(r Repository) error {
		tx := r.(*DB)
		if _, err := tx.q.ExecContext(ctx,
			`DELETE FROM mochi_sync WHERE user_id = ? AND (note_id = ? OR mochi_card_id = ?)`,
			l.UserID, l.NoteID, l.CardID); err != nil {
			return fmt.Errorf("store: clear link: %w", err)
		}
		if _, err := tx.q.ExecContext(ctx, `
			INSERT INTO mochi_sync (
				user_id, note_id, mochi_card_id, mochi_deck_id, local_hash, remote_hash, remote_updated_at, last_synced_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, l.UserID, l.NoteID, l.CardID, l.DeckID, l.LocalHash, l.RemoteHash, l.RemoteUpdatedAt); err != nil {
			return fmt.Errorf("store: insert link: %w", err)
		}
		return nil
	})
}

// RemoveLinkByCard deletes the link addressed by a remote card id.
func (db *DB) RemoveLinkByCard(ctx context.Context, userID int64, cardID string) error {
	if _, err := db.q.ExecContext(ctx,
		`DELETE FROM mochi_sync WHERE user_id = ? AND mochi_card_id = ?`, userID, cardID); err != nil {
		return fmt.Errorf("store: remove link: %w", err)
	}
	return nil
}
