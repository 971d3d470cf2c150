// Package models defines the domain types for Ansuz.
package models

import (
	"strings"
	"time"
)

// NoteType is the card shape of a Note or Proposal.
type NoteType string

const (
	NoteBasic NoteType = "basic"
	NoteCloze NoteType = "cloze"
)

// ParseNoteType maps free-form input onto a NoteType. Anything that is not
// "cloze" is treated as basic.
func ParseNoteType(s string) NoteType {
	if strings.EqualFold(strings.TrimSpace(s), string(NoteCloze)) {
		return NoteCloze
	}
	return NoteBasic
}

// Note origins.
const (
	OriginManual           = "manual"
	OriginProposalApproved = "proposal_approved"
	OriginMochiPull        = "mochi_pull"
)

// CardFields holds the semantic fields shared by notes, proposals and
// generated candidates.
type CardFields struct {
	Type  NoteType `json:"type"`
	Front string   `json:"front"`
	Back  string   `json:"back"`
	Cloze string   `json:"cloze"`
	Extra string   `json:"extra"`
	Tags  []string `json:"tags"`
}

// Note is an accepted flashcard owned by one user.
type Note struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
	CardFields
	SourceID  int64     `json:"source_id"`
	Origin    string    `json:"origin"`
	CreatedAt time.Time `json:"created_at"`
}

// User holds per-user settings. Empty values fall back to configuration.
type User struct {
	ID          int64  `json:"id"`
	DeckName    string `json:"deck_name"`
	MochiAPIKey string `json:"-"`
	MochiDeckID string `json:"mochi_deck_id"`
}
