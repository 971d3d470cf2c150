package api

import (
	"log/slog"
	"net/http"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/proposal"
	"github.com/starford/ansuz/internal/reconcile"
)

// SyncEvents is told about finished sync passes.
type SyncEvents interface {
	PublishSync(userID int64, report any)
}

// Deps are the services the API is built on. Sync, Events and Backups may be nil.
type Deps struct {
	Notes     *noteservice.Service
	Proposals *proposal.Service
	Sync      *reconcile.Service
	Events    SyncEvents
	Backups   reconcile.Backuper
	BackupDir string
	Logger    *slog.Logger
}

// Handler holds API route handlers.
type Handler struct {
	notes     *noteservice.Service
	proposals *proposal.Service
	sync      *reconcile.Service
	events    SyncEvents
	backups   reconcile.Backuper
	backupDir string
	logger    *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		notes:     d.Notes,
		proposals: d.Proposals,
		sync:      d.Sync,
		events:    d.Events,
		backups:   d.Backups,
		backupDir: d.BackupDir,
		logger:    logger,
	}
}

// ListNotes handles GET /api/users/{userID}/notes.
//
//	@Summary		List accepted notes
//	@Tags			notes
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.ListNotes(r.Context(), userID(r))
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// CreateNote handles POST /api/users/{userID}/notes.
//
//	@Summary		Add a manual basic or cloze note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int					true	"User ID"
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.notes.AddNote(r.Context(), userID(r), noteservice.ManualNote{
		Type:  models.ParseNoteType(req.Type),
		Front: req.Front,
		Back:  req.Back,
		Cloze: req.Cloze,
		Extra: req.Extra,
		Tags:  req.Tags,
	})
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// ClearNotes handles DELETE /api/users/{userID}/notes.
//
//	@Summary		Delete every note of the user
//	@Tags			notes
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		200		{object}	map[string]int64
//	@Security		BearerAuth
//	@Router			/users/{userID}/notes [delete]
func (h *Handler) ClearNotes(w http.ResponseWriter, r *http.Request) {
	n, err := h.notes.ClearNotes(r.Context(), userID(r))
	if err != nil {
		writeError(w, "clear notes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// SetDeckName handles PUT /api/users/{userID}/deck.
//
//	@Summary		Set the local deck name
//	@Tags			notes
//	@Accept			json
//	@Param			userID	path	int				true	"User ID"
//	@Param			body	body	DeckNameRequest	true	"Deck name"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/deck [put]
func (h *Handler) SetDeckName(w http.ResponseWriter, r *http.Request) {
	var req DeckNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.notes.SetDeckName(r.Context(), userID(r), req.Name); err != nil {
		writeError(w, "set deck name", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/users/{userID}/status.
//
//	@Summary		Note and queue counters
//	@Tags			notes
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		200		{object}	noteservice.Status
//	@Security		BearerAuth
//	@Router			/users/{userID}/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.notes.Status(r.Context(), userID(r))
	if err != nil {
		writeError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
