package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /users/{userID}/events inside the auth group.
func NewRouter(d Deps, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/users/{userID}", func(r chi.Router) {
		// SSE reads {userID} itself.
		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(UserMiddleware)

			// Sources.
			r.Post("/sources", h.CreateSource)
			r.Get("/sources", h.ListSources)
			r.Post("/sources/{id}/status", h.SetSourceStatus)
			r.Post("/sources/{id}/proposals", h.ProposeSource)

			// Proposals.
			r.Post("/proposals", h.ProposeText)
			r.Post("/proposals/pending", h.ProposePending)
			r.Get("/proposals", h.ListProposals)
			r.Post("/reactions", h.React)
			r.Post("/replies", h.Reply)
			r.Post("/feedback", h.Feedback)

			// Notes.
			r.Get("/notes", h.ListNotes)
			r.Post("/notes", h.CreateNote)
			r.Delete("/notes", h.ClearNotes)
			r.Put("/deck", h.SetDeckName)
			r.Get("/status", h.Status)

			// Mochi.
			r.Get("/mochi/status", h.MochiStatus)
			r.Put("/mochi/settings", h.SaveMochiSettings)
			r.Get("/mochi/decks", h.ListDecks)
			r.Post("/mochi/decks", h.CreateDeck)
			r.Post("/sync/{action}", h.Sync)
			r.Post("/backup", h.Backup)
		})
	})

	return r
}
