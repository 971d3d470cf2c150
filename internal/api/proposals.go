package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/proposal"
)

// ProposeText handles POST /api/users/{userID}/proposals.
//
//	@Summary		Generate proposals from free text
//	@Tags			proposals
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int					true	"User ID"
//	@Param			body	body		ProposeTextRequest	true	"Source text, optionally with a [lang:xx] marker"
//	@Success		200		{object}	proposal.Outcome
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/proposals [post]
func (h *Handler) ProposeText(w http.ResponseWriter, r *http.Request) {
	var req ProposeTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.proposals.ProposeText(r.Context(), userID(r), req.Text, "http")
	if err != nil {
		writeError(w, "propose text", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ProposeSource handles POST /api/users/{userID}/sources/{id}/proposals.
//
//	@Summary		Generate proposals from a stored source
//	@Tags			proposals
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Param			id		path		int	true	"Source ID"
//	@Success		200		{object}	proposal.Outcome
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/sources/{id}/proposals [post]
func (h *Handler) ProposeSource(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid source id"))
		return
	}
	out, err := h.proposals.ProposeSource(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, "propose source", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ProposePending handles POST /api/users/{userID}/proposals/pending.
//
//	@Summary		Generate proposals for the oldest pending sources
//	@Tags			proposals
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int						true	"User ID"
//	@Param			body	body		ProposePendingRequest	false	"Batch size"
//	@Success		200		{object}	proposal.BatchSummary
//	@Security		BearerAuth
//	@Router			/users/{userID}/proposals/pending [post]
func (h *Handler) ProposePending(w http.ResponseWriter, r *http.Request) {
	var req ProposePendingRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	sum, err := h.proposals.ProposePending(r.Context(), userID(r), req.Limit)
	if err != nil {
		writeError(w, "propose pending", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ListProposals handles GET /api/users/{userID}/proposals.
//
//	@Summary		List proposals
//	@Tags			proposals
//	@Produce		json
//	@Param			userID	path		int		true	"User ID"
//	@Param			status	query		string	false	"Filter by status"	Enums(pending, approved, rejected, expired)
//	@Param			limit	query		int		false	"Keep only the newest N"
//	@Success		200		{object}	ProposalListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/proposals [get]
func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := models.ProposalStatus(q.Get("status"))
	switch status {
	case "", models.ProposalPending, models.ProposalApproved, models.ProposalRejected, models.ProposalExpired:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("unknown proposal status"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	items, err := h.proposals.ListProposals(r.Context(), userID(r), status, limit)
	if err != nil {
		writeError(w, "list proposals", err)
		return
	}
	writeJSON(w, http.StatusOK, ProposalListResponse{Proposals: items, Total: len(items)})
}

// React handles POST /api/users/{userID}/reactions. An approval is pushed
// to Mochi straight away when credentials are configured.
//
//	@Summary		Approve or reject the proposal behind a handle
//	@Tags			proposals
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int				true	"User ID"
//	@Param			body	body		ReactionRequest	true	"Reaction emojis or an explicit decision"
//	@Success		200		{object}	ReactionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/reactions [post]
func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	decision := proposal.ParseDecision(req.Decision)
	if decision == proposal.DecisionNone {
		decision = proposal.ClassifyReaction(req.Emojis)
	}

	uid := userID(r)
	res, err := h.proposals.Decide(r.Context(), uid, req.Handle, decision)
	if err != nil {
		writeError(w, "decide", err)
		return
	}
	resp := ReactionResponse{DecideResult: res}
	if res.Applied && res.Note != nil && h.sync != nil {
		push, err := h.sync.PushNote(r.Context(), uid, *res.Note)
		if err != nil {
			if !errors.Is(err, apperr.ErrMissingCredentials) {
				h.logger.Warn("push approved note failed",
					slog.Int64("user_id", uid), slog.Int64("note_id", res.Note.ID), slog.String("error", err.Error()))
			}
			resp.PushError = err.Error()
		} else {
			resp.Push = &push
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reply handles POST /api/users/{userID}/replies. A reply starting with
// "feedback" revises the proposal; anything else becomes a text source.
//
//	@Summary		Reply to a delivered proposal
//	@Tags			proposals
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int				true	"User ID"
//	@Param			body	body		ReplyRequest	true	"Reply text"
//	@Success		200		{object}	ReplyResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/replies [post]
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	var req ReplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	uid := userID(r)
	if body, ok := proposal.ExtractFeedback(req.Text); ok {
		out, err := h.proposals.SubmitFeedback(r.Context(), uid, req.Handle, body)
		if err != nil {
			writeError(w, "reply feedback", err)
			return
		}
		writeJSON(w, http.StatusOK, ReplyResponse{Feedback: true, Outcome: &out})
		return
	}
	src, err := h.notes.IngestText(r.Context(), uid, req.Text, "reply")
	if err != nil {
		writeError(w, "reply source", err)
		return
	}
	writeJSON(w, http.StatusOK, ReplyResponse{Source: src})
}

// Feedback handles POST /api/users/{userID}/feedback.
//
//	@Summary		Revise the proposal behind a handle
//	@Tags			proposals
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int				true	"User ID"
//	@Param			body	body		ReplyRequest	true	"Feedback text"
//	@Success		200		{object}	proposal.Outcome
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/feedback [post]
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req ReplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.proposals.SubmitFeedback(r.Context(), userID(r), req.Handle, req.Text)
	if err != nil {
		writeError(w, "feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
