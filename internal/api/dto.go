package api

import (
	"github.com/starford/studyvault/internal/models"
	"github.com/starford/studyvault/internal/studyservice"
)

// TreeItem is one child in a tree listing.
type TreeItem struct {
	Name string      `json:"name" example:"Algebra" validate:"required"`
	Type models.Kind `json:"type" swaggertype:"string" enums:"GROUP,NOTEBOOK" validate:"required"`
	Path string      `json:"path" example:"/root/_notebooks/Algebra" validate:"required"`
}

// TreeResponse is the listing of one group path.
type TreeResponse struct {
	Path   string     `json:"path" example:"/root/Math/" validate:"required"`
	Parent string     `json:"parent" example:"/root/" validate:"required"`
	Items  []TreeItem `json:"items" validate:"required"`
}

// CreateItemRequest is the request body for creating a group or notebook.
type CreateItemRequest struct {
	Parent string `json:"parent" example:"/root/"`
	Name   string `json:"name" example:"Algebra" validate:"required"`
	Type   string `json:"type" example:"NOTEBOOK" enums:"GROUP,NOTEBOOK" validate:"required"`
}

// SetArtifactRequest is the request body for writing an artifact.
type SetArtifactRequest struct {
	Value *string `json:"value" example:"Cells divide by mitosis." validate:"required"`
}

// ArtifactDetail is the artifact response type (aliased from the domain layer).
type ArtifactDetail = studyservice.ArtifactDetail

// NotebookResponse lists the artifacts stored for a notebook.
type NotebookResponse struct {
	Path   string   `json:"path" example:"/root/_notebooks/Algebra" validate:"required"`
	Fields []string `json:"fields" example:"transcript,flashcards" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"/root/_notebooks/Algebra" validate:"required"`
	Field   string `json:"field" example:"transcript" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

func treeItem(parent string, it models.Item) TreeItem {
	return TreeItem{Name: it.Name, Type: it.Kind, Path: childPath(parent, it)}
}
