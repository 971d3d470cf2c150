package models

import "time"

// SyncLink joins one local Note to one remote card.
type SyncLink struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	NoteID          int64     `json:"note_id"`
	CardID          string    `json:"mochi_card_id"`
	DeckID          string    `json:"mochi_deck_id"`
	LocalHash       string    `json:"local_hash"`
	RemoteHash      string    `json:"remote_hash"`
	RemoteUpdatedAt string    `json:"remote_updated_at"`
	LastSyncedAt    time.Time `json:"last_synced_at"`
}
