package api

import (
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/proposal"
	"github.com/starford/ansuz/internal/reconcile"
)

// CreateSourceRequest is the JSON body for POST /sources.
type CreateSourceRequest struct {
	Text      string `json:"text" example:"Warsaw is the capital of Poland." validate:"required"`
	Transport string `json:"transport,omitempty" example:"http" validate:"omitempty,max=40"`
}

// SourceStatusRequest is the body for POST /sources/{id}/status.
type SourceStatusRequest struct {
	Status string `json:"status" example:"done" validate:"required,oneof=done processed ignored pending"`
}

// ProposeTextRequest is the body for POST /proposals.
type ProposeTextRequest struct {
	Text string `json:"text" example:"[lang:pl] Stolica Polski to Warszawa" validate:"required"`
}

// ProposePendingRequest is the body for POST /proposals/pending.
type ProposePendingRequest struct {
	Limit int `json:"limit" example:"3" validate:"omitempty,min=1,max=20"`
}

// ReactionRequest is the body for POST /reactions. Either Emojis or
// Decision must be set.
type ReactionRequest struct {
	Handle   int64    `json:"handle" example:"17" validate:"required,gt=0"`
	Emojis   []string `json:"emojis,omitempty" example:"👍"`
	Decision string   `json:"decision,omitempty" example:"approve" validate:"omitempty,oneof=approve approved reject rejected"`
}

// ReplyRequest is the body for POST /replies and POST /feedback.
type ReplyRequest struct {
	Handle int64  `json:"handle" example:"17" validate:"required,gt=0"`
	Text   string `json:"text" example:"feedback: make it a cloze"`
}

// CreateNoteRequest is the body for POST /notes.
type CreateNoteRequest struct {
	Type  string   `json:"type" example:"basic" validate:"required,oneof=basic cloze"`
	Front string   `json:"front,omitempty" validate:"required_if=Type basic"`
	Back  string   `json:"back,omitempty" validate:"required_if=Type basic"`
	Cloze string   `json:"cloze,omitempty" validate:"required_if=Type cloze"`
	Extra string   `json:"extra,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// DeckNameRequest is the body for PUT /deck.
type DeckNameRequest struct {
	Name string `json:"name" example:"Geography" validate:"required,max=200"`
}

// MochiSettingsRequest is the body for PUT /mochi/settings.
type MochiSettingsRequest struct {
	APIKey string `json:"api_key,omitempty" validate:"required_without=DeckID"`
	DeckID string `json:"deck_id,omitempty" validate:"required_without=APIKey"`
}

// CreateDeckRequest is the body for POST /mochi/decks.
type CreateDeckRequest struct {
	Name string `json:"name" example:"Capitals" validate:"required,max=200"`
}

// SourceListResponse wraps a source listing.
type SourceListResponse struct {
	Sources []models.Source `json:"sources"`
	Total   int             `json:"total"`
}

// NoteListResponse wraps a note listing.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// ProposalListResponse wraps a proposal listing.
type ProposalListResponse struct {
	Proposals []models.Proposal `json:"proposals"`
	Total     int               `json:"total"`
}

// ReactionResponse reports a decision and the follow-up push, if any.
type ReactionResponse struct {
	proposal.DecideResult
	Push      *reconcile.PushResult `json:"push,omitempty"`
	PushError string                `json:"push_error,omitempty"`
}

// ReplyResponse reports how a reply was handled.
type ReplyResponse struct {
	Feedback bool              `json:"feedback"`
	Outcome  *proposal.Outcome `json:"outcome,omitempty"`
	Source   *models.Source    `json:"source,omitempty"`
}

// SyncErrorResponse carries the partial counts of a failed sync.
type SyncErrorResponse struct {
	Error  string           `json:"error"`
	Report reconcile.Report `json:"report"`
}

// BackupResponse is returned by POST /backup.
type BackupResponse struct {
	Path string `json:"path"`
}
