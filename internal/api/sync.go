package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/reconcile"
)

func (h *Handler) syncEnabled(w http.ResponseWriter) bool {
	if h.sync == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("mochi sync is not configured"))
		return false
	}
	return true
}

// MochiStatus handles GET /api/users/{userID}/mochi/status.
//
//	@Summary		Effective Mochi key and deck
//	@Tags			mochi
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		200		{object}	reconcile.Status
//	@Security		BearerAuth
//	@Router			/users/{userID}/mochi/status [get]
func (h *Handler) MochiStatus(w http.ResponseWriter, r *http.Request) {
	if !h.syncEnabled(w) {
		return
	}
	st, err := h.sync.Status(r.Context(), userID(r))
	if err != nil {
		writeError(w, "mochi status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SaveMochiSettings handles PUT /api/users/{userID}/mochi/settings.
//
//	@Summary		Store a per-user Mochi key and/or deck
//	@Tags			mochi
//	@Accept			json
//	@Param			userID	path	int						true	"User ID"
//	@Param			body	body	MochiSettingsRequest	true	"Settings"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/mochi/settings [put]
func (h *Handler) SaveMochiSettings(w http.ResponseWriter, r *http.Request) {
	if !h.syncEnabled(w) {
		return
	}
	var req MochiSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.sync.SaveSettings(r.Context(), userID(r), req.APIKey, req.DeckID); err != nil {
		writeError(w, "save mochi settings", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDecks handles GET /api/users/{userID}/mochi/decks.
//
//	@Summary		List remote decks
//	@Tags			mochi
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		200		{array}		mochi.Deck
//	@Failure		412		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/mochi/decks [get]
func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	if !h.syncEnabled(w) {
		return
	}
	decks, err := h.sync.Decks(r.Context(), userID(r))
	if err != nil {
		writeError(w, "list decks", err)
		return
	}
	writeJSON(w, http.StatusOK, decks)
}

// CreateDeck handles POST /api/users/{userID}/mochi/decks.
//
//	@Summary		Create a remote deck and select it
//	@Tags			mochi
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int					true	"User ID"
//	@Param			body	body		CreateDeckRequest	true	"Deck name"
//	@Success		201		{object}	map[string]string
//	@Failure		412		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/mochi/decks [post]
func (h *Handler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	if !h.syncEnabled(w) {
		return
	}
	var req CreateDeckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.sync.CreateDeck(r.Context(), userID(r), req.Name)
	if err != nil {
		writeError(w, "create deck", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"deck_id": id})
}

// Sync handles POST /api/users/{userID}/sync/{action}.
//
//	@Summary		Run a push, pull, both or repair pass
//	@Tags			mochi
//	@Produce		json
//	@Param			userID	path		int		true	"User ID"
//	@Param			action	path		string	true	"Pass"	Enums(push, pull, both, repair)
//	@Success		200		{object}	reconcile.Report
//	@Failure		400		{object}	errResponse
//	@Failure		412		{object}	errResponse
//	@Failure		502		{object}	SyncErrorResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/sync/{action} [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if !h.syncEnabled(w) {
		return
	}
	action, err := reconcile.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, "sync", err)
		return
	}
	uid := userID(r)
	rep, err := h.sync.Run(r.Context(), uid, action)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusBadGateway {
			writeJSON(w, status, SyncErrorResponse{Error: err.Error(), Report: rep})
			return
		}
		writeError(w, "sync", err)
		return
	}
	if h.events != nil {
		h.events.PublishSync(uid, rep)
	}
	writeJSON(w, http.StatusOK, rep)
}

// Backup handles POST /api/users/{userID}/backup.
//
//	@Summary		Write a database snapshot
//	@Tags			mochi
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		201		{object}	BackupResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/backup [post]
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("backups are not configured"))
		return
	}
	path, err := h.backups.Backup(r.Context(), h.backupDir, userID(r), "manual")
	if err != nil {
		writeError(w, "backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, BackupResponse{Path: path})
}
