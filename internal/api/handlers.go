package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/studyvault/internal/artifact"
	"github.com/starford/studyvault/internal/models"
	"github.com/starford/studyvault/internal/pathstore"
	"github.com/starford/studyvault/internal/studyservice"
)

const (
	maxBodyBytes   = 10 << 20
	maxSearchLimit = 100
)

// Handler holds API route handlers.
type Handler struct {
	svc *studyservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *studyservice.Service) *Handler {
	return &Handler{svc: svc}
}

// groupPathParam reads ?path=, defaulting to the root.
func groupPathParam(r *http.Request) (string, bool) {
	p := r.URL.Query().Get("path")
	if p == "" {
		return pathstore.RootPath, true
	}
	return p, pathstore.IsGroupPath(p)
}

// artifactParams reads ?path= and the {field} URL parameter.
func artifactParams(w http.ResponseWriter, r *http.Request) (notebookPath, field string, ok bool) {
	notebookPath = r.URL.Query().Get("path")
	if !pathstore.IsNotebookPath(notebookPath) {
		writeJSON(w, http.StatusBadRequest, errorBody("path must be a notebook path"))
		return "", "", false
	}
	field = chi.URLParam(r, "field")
	if !artifact.Known(field) {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown artifact field"))
		return "", "", false
	}
	return notebookPath, field, true
}

func childPath(parent string, it models.Item) string {
	if it.IsGroup() {
		return pathstore.GroupPath(parent, it.Name)
	}
	return pathstore.NotebookPath(parent, it.Name)
}

// ListTree handles GET /api/tree.
//
//	@Summary		List the groups and notebooks under a path
//	@Tags			tree
//	@Produce		json
//	@Param			path	query		string	false	"Group path"	default(/root/)
//	@Success		200		{object}	TreeResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tree [get]
func (h *Handler) ListTree(w http.ResponseWriter, r *http.Request) {
	path, ok := groupPathParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("path must be a group path"))
		return
	}
	items, err := h.svc.ListChildren(r.Context(), path)
	if err != nil {
		writeServiceError(w, err, "list tree", slog.String("path", path))
		return
	}
	out := make([]TreeItem, len(items))
	for i, it := range items {
		out[i] = treeItem(path, it)
	}
	writeJSON(w, http.StatusOK, TreeResponse{
		Path:   path,
		Parent: pathstore.ParentPath(path),
		Items:  out,
	})
}

// CreateItem handles POST /api/tree.
//
//	@Summary		Create a group or notebook
//	@Tags			tree
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateItemRequest	true	"Item to create"
//	@Success		201		{object}	TreeItem
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tree [post]
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Parent == "" {
		req.Parent = pathstore.RootPath
	}
	if !pathstore.IsGroupPath(req.Parent) {
		writeJSON(w, http.StatusBadRequest, errorBody("parent must be a group path"))
		return
	}
	kind, err := models.ParseKind(req.Type)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("type must be GROUP or NOTEBOOK"))
		return
	}

	// Requests are stateless, so the snapshot is a fresh listing.
	existing, err := h.svc.ListChildren(r.Context(), req.Parent)
	if err != nil {
		writeServiceError(w, err, "create item", slog.String("parent", req.Parent))
		return
	}
	item, err := h.svc.CreateChild(r.Context(), req.Name, kind, req.Parent, existing)
	if err != nil {
		writeServiceError(w, err, "create item", slog.String("parent", req.Parent))
		return
	}
	writeJSON(w, http.StatusCreated, treeItem(req.Parent, item))
}

// ResetTree handles DELETE /api/tree.
//
//	@Summary		Delete every group, notebook and artifact
//	@Tags			tree
//	@Success		204	"Store cleared"
//	@Security		BearerAuth
//	@Router			/tree [delete]
func (h *Handler) ResetTree(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResetAll(r.Context()); err != nil {
		writeServiceError(w, err, "reset store")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetNotebook handles GET /api/notebooks.
//
//	@Summary		List the artifacts stored for a notebook
//	@Tags			notebooks
//	@Produce		json
//	@Param			path	query		string	true	"Notebook path"
//	@Success		200		{object}	NotebookResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notebooks [get]
func (h *Handler) GetNotebook(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if !pathstore.IsNotebookPath(path) {
		writeJSON(w, http.StatusBadRequest, errorBody("path must be a notebook path"))
		return
	}
	fields, err := h.svc.ArtifactFields(r.Context(), path)
	if err != nil {
		writeServiceError(w, err, "get notebook", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, NotebookResponse{Path: path, Fields: fields})
}

// GetArtifact handles GET /api/artifacts/{field}.
//
//	@Summary		Get one artifact of a notebook
//	@Tags			artifacts
//	@Produce		json
//	@Param			field	path		string	true	"Artifact field"	Enums(transcript, summary_title, flashcards, yt_suggest)
//	@Param			path	query		string	true	"Notebook path"
//	@Success		200		{object}	ArtifactDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/artifacts/{field} [get]
func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	path, field, ok := artifactParams(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Artifact(r.Context(), path, field)
	if err != nil {
		writeServiceError(w, err, "get artifact", slog.String("path", path), slog.String("field", field))
		return
	}
	w.Header().Set("ETag", `"`+d.Checksum+`"`)
	writeJSON(w, http.StatusOK, d)
}

// PutArtifact handles PUT /api/artifacts/{field}.
//
//	@Summary		Write an artifact with optimistic concurrency
//	@Tags			artifacts
//	@Accept			json
//	@Produce		json
//	@Param			field		path		string				true	"Artifact field"
//	@Param			path		query		string				true	"Notebook path"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		SetArtifactRequest	true	"New value"
//	@Success		200			{object}	ArtifactDetail
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/artifacts/{field} [put]
func (h *Handler) PutArtifact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path, field, ok := artifactParams(w, r)
	if !ok {
		return
	}
	var req SetArtifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Value == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("value is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	d, err := h.svc.SetArtifact(r.Context(), path, field, *req.Value, ifMatch)
	if err != nil {
		writeServiceError(w, err, "put artifact", slog.String("path", path), slog.String("field", field))
		return
	}
	w.Header().Set("ETag", `"`+d.Checksum+`"`)
	writeJSON(w, http.StatusOK, d)
}

// ImportArtifact handles POST /api/artifacts/{field}/import.
//
//	@Summary		Store raw generative-model output for flashcards or yt_suggest
//	@Tags			artifacts
//	@Accept			plain
//	@Produce		json
//	@Param			field	path		string	true	"Artifact field"	Enums(flashcards, yt_suggest)
//	@Param			path	query		string	true	"Notebook path"
//	@Success		200		{object}	ArtifactDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/artifacts/{field}/import [post]
func (h *Handler) ImportArtifact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path, field, ok := artifactParams(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	d, err := h.svc.ImportModelOutput(r.Context(), path, field, string(raw))
	if err != nil {
		writeServiceError(w, err, "import artifact", slog.String("path", path), slog.String("field", field))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across transcripts and summaries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	hits, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, err, "search", slog.String("query", q))
		return
	}
	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = SearchResult{Path: hit.NotebookPath, Field: hit.Field, Snippet: hit.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
