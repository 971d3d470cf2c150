package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
)

const maxUploadBytes = 50 << 20 // 50 MB

// CreateSource handles POST /api/users/{userID}/sources.
// A JSON body adds text; a multipart form with a "file" field adds a file.
//
//	@Summary		Add a text, URL or file source to the pending queue
//	@Tags			sources
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			userID	path		int					true	"User ID"
//	@Param			body	body		CreateSourceRequest	false	"Text source"
//	@Param			file	formData	file				false	"File source"
//	@Param			caption	formData	string				false	"Caption used when the file has no text"
//	@Success		201		{object}	models.Source
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/sources [post]
func (h *Handler) CreateSource(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.uploadSource(w, r)
		return
	}
	var req CreateSourceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	transport := req.Transport
	if transport == "" {
		transport = "http"
	}
	src, err := h.notes.IngestText(r.Context(), userID(r), req.Text, transport)
	if err != nil {
		writeError(w, "create source", err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (h *Handler) uploadSource(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	src, err := h.notes.IngestFile(r.Context(), userID(r), header.Filename,
		header.Header.Get("Content-Type"), r.FormValue("caption"), payload)
	if err != nil {
		writeError(w, "upload source", err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

// ListSources handles GET /api/users/{userID}/sources.
//
//	@Summary		List sources
//	@Tags			sources
//	@Produce		json
//	@Param			userID	path		int		true	"User ID"
//	@Param			status	query		string	false	"Filter by status"	Enums(pending, processed, done, ignored)
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SourceListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/sources [get]
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	sources, err := h.notes.ListSources(r.Context(), userID(r), q.Get("status"), limit)
	if err != nil {
		writeError(w, "list sources", err)
		return
	}
	writeJSON(w, http.StatusOK, SourceListResponse{Sources: sources, Total: len(sources)})
}

// SetSourceStatus handles POST /api/users/{userID}/sources/{id}/status.
//
//	@Summary		Mark a source as done, ignored or pending
//	@Tags			sources
//	@Accept			json
//	@Param			userID	path	int					true	"User ID"
//	@Param			id		path	int					true	"Source ID"
//	@Param			body	body	SourceStatusRequest	true	"New status"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userID}/sources/{id}/status [post]
func (h *Handler) SetSourceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid source id"))
		return
	}
	var req SourceStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.notes.SetSourceStatus(r.Context(), userID(r), id, req.Status); err != nil {
		writeError(w, "set source status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
