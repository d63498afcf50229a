package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/studyvault/internal/studyservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *studyservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Groups and notebooks.
	r.Get("/tree", h.ListTree)
	r.Post("/tree", h.CreateItem)
	r.Delete("/tree", h.ResetTree)
	r.Get("/notebooks", h.GetNotebook)

	// Artifacts.
	r.Get("/artifacts/{field}", h.GetArtifact)
	r.Put("/artifacts/{field}", h.PutArtifact)
	r.Post("/artifacts/{field}/import", h.ImportArtifact)

	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
