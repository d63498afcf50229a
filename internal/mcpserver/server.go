// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes studyvault tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/studyvault/internal/apperr"
	"github.com/starford/studyvault/internal/artifact"
	"github.com/starford/studyvault/internal/models"
	"github.com/starford/studyvault/internal/pathstore"
	"github.com/starford/studyvault/internal/review"
	"github.com/starford/studyvault/internal/studyservice"
)

const layoutURI = "studyvault://layout"

// Server wraps the MCP server with studyvault tools. A stdio connection is a
// single client, so one Browser and at most one review session are kept.
type Server struct {
	mcp     *server.MCPServer
	svc     *studyservice.Service
	browser *studyservice.Browser

	mu     sync.Mutex
	review *review.Session
}

// New creates a new MCP server with all studyvault tools registered.
func New(svc *studyservice.Service, version string) *Server {
	s := &Server{svc: svc, browser: studyservice.NewBrowser(svc)}

	s.mcp = server.NewMCPServer(
		"studyvault",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_children",
		mcp.WithDescription("List the groups and notebooks in the current group."),
	), s.listChildren)

	s.mcp.AddTool(mcp.NewTool("change_directory",
		mcp.WithDescription("Move into a child group of the current group."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the child group")),
	), s.changeDirectory)

	s.mcp.AddTool(mcp.NewTool("go_up",
		mcp.WithDescription("Move to the parent group. Stays at the root when already there."),
	), s.goUp)

	s.mcp.AddTool(mcp.NewTool("create_group",
		mcp.WithDescription("Create a group in the current group."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Group name")),
	), s.createGroup)

	s.mcp.AddTool(mcp.NewTool("create_notebook",
		mcp.WithDescription("Create a notebook in the current group."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Notebook name")),
	), s.createNotebook)

	s.mcp.AddTool(mcp.NewTool("get_artifact",
		mcp.WithDescription("Read one artifact of a notebook. See the "+layoutURI+" resource for the fields."),
		mcp.WithString("notebook", mcp.Required(), mcp.Description("Notebook name in the current group, or a full notebook path")),
		mcp.WithString("field", mcp.Required(), mcp.Description("Artifact field"), mcp.Enum(artifact.Fields...)),
	), s.getArtifact)

	s.mcp.AddTool(mcp.NewTool("set_artifact",
		mcp.WithDescription("Write one artifact of a notebook. flashcards and yt_suggest take JSON lists."),
		mcp.WithString("notebook", mcp.Required(), mcp.Description("Notebook name in the current group, or a full notebook path")),
		mcp.WithString("field", mcp.Required(), mcp.Description("Artifact field"), mcp.Enum(artifact.Fields...)),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value")),
		mcp.WithBoolean("from_model", mcp.Description("Strip ```json fences from model output before storing")),
	), s.setArtifact)

	s.mcp.AddTool(mcp.NewTool("search_artifacts",
		mcp.WithDescription("Full-text search through transcripts and summaries."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of hits (default 20)")),
	), s.searchArtifacts)

	s.mcp.AddTool(mcp.NewTool("reset_store",
		mcp.WithDescription("Delete every group, notebook and artifact. Irreversible."),
		mcp.WithString("confirm", mcp.Required(), mcp.Description(`Must be "yes"`)),
	), s.resetStore)

	s.mcp.AddTool(mcp.NewTool("start_review",
		mcp.WithDescription("Start a flashcard review session for a notebook."),
		mcp.WithString("notebook", mcp.Required(), mcp.Description("Notebook name in the current group, or a full notebook path")),
	), s.startReview)

	s.mcp.AddTool(mcp.NewTool("review_card",
		mcp.WithDescription("Act on the current review session."),
		mcp.WithString("action", mcp.Required(), mcp.Description("What to do"),
			mcp.Enum("show", "flip", "next", "prev", "easy", "medium", "hard", "end")),
	), s.reviewCard)

	// Resource: key layout.
	s.mcp.AddResource(
		mcp.NewResource(layoutURI, "Layout",
			mcp.WithResourceDescription("How groups, notebooks and artifacts are addressed."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type listing struct {
	Path  string         `json:"path"`
	Items []listingEntry `json:"items"`
}

type listingEntry struct {
	Name string      `json:"name"`
	Type models.Kind `json:"type"`
	Path string      `json:"path"`
}

func (s *Server) listingResult() *mcp.CallToolResult {
	cur := s.browser.Current()
	out := listing{Path: cur, Items: []listingEntry{}}
	for _, it := range s.browser.Items() {
		p := pathstore.NotebookPath(cur, it.Name)
		if it.IsGroup() {
			p = pathstore.GroupPath(cur, it.Name)
		}
		out.Items = append(out.Items, listingEntry{Name: it.Name, Type: it.Kind, Path: p})
	}
	return jsonResult(out)
}

func (s *Server) listChildren(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.browser.Refresh(ctx); err != nil {
		return errorResult(err), nil
	}
	return s.listingResult(), nil
}

func (s *Server) changeDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.browser.Refresh(ctx); err != nil {
		return errorResult(err), nil
	}
	if err := s.browser.Enter(ctx, name); err != nil {
		return errorResult(err), nil
	}
	return s.listingResult(), nil
}

func (s *Server) goUp(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.browser.Up(ctx); err != nil {
		return errorResult(err), nil
	}
	return s.listingResult(), nil
}

func (s *Server) createGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.create(ctx, req, models.KindGroup)
}

func (s *Server) createNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.create(ctx, req, models.KindNotebook)
}

func (s *Server) create(ctx context.Context, req mcp.CallToolRequest, kind models.Kind) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.browser.Create(ctx, name, kind)
	if err != nil {
		return errorResult(err), nil
	}
	cur := s.browser.Current()
	p := pathstore.NotebookPath(cur, item.Name)
	if item.IsGroup() {
		p = pathstore.GroupPath(cur, item.Name)
	}
	return mcp.NewToolResultText(fmt.Sprintf("created %s: %s", item.Kind, p)), nil
}

// resolveNotebook accepts a full notebook path or the name of a notebook in
// the current group.
func (s *Server) resolveNotebook(ctx context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, pathstore.Sep) {
		if !pathstore.IsNotebookPath(ref) {
			return "", apperr.Invalid(fmt.Sprintf("%q is not a notebook path", ref))
		}
		return ref, nil
	}
	if p, err := s.browser.NotebookPath(ref); err == nil {
		return p, nil
	}
	if err := s.browser.Refresh(ctx); err != nil {
		return "", err
	}
	return s.browser.NotebookPath(ref)
}

func (s *Server) getArtifact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("notebook")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nb, err := s.resolveNotebook(ctx, ref)
	if err != nil {
		return errorResult(err), nil
	}
	d, err := s.svc.Artifact(ctx, nb, field)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("%s has no %s yet", nb, field)), nil
		}
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(d.Value), nil
}

func (s *Server) setArtifact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("notebook")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !artifact.Known(field) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown artifact field %q", field)), nil
	}
	nb, err := s.resolveNotebook(ctx, ref)
	if err != nil {
		return errorResult(err), nil
	}

	var d *studyservice.ArtifactDetail
	if req.GetBool("from_model", false) {
		d, err = s.svc.ImportModelOutput(ctx, nb, field, value)
	} else {
		d, err = s.svc.SetArtifact(ctx, nb, field, value, "")
	}
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved %s (checksum %s)", pathstore.ArtifactKey(d.Path, d.Field), d.Checksum)), nil
}

func (s *Server) searchArtifacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) resetStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm, err := req.RequireString("confirm")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if confirm != "yes" {
		return mcp.NewToolResultError(`reset_store needs confirm: "yes"`), nil
	}
	if err := s.browser.Reset(ctx); err != nil {
		return errorResult(err), nil
	}
	s.mu.Lock()
	s.review = nil
	s.mu.Unlock()
	return mcp.NewToolResultText("store cleared"), nil
}

func (s *Server) readLayoutResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      layoutURI,
			MIMEType: "text/markdown",
			Text:     LayoutContract,
		},
	}, nil
}

// errorResult turns a service error into a tool error. Validation messages
// are meant for the user and pass through unchanged.
func errorResult(err error) *mcp.CallToolResult {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		return mcp.NewToolResultError(ve.Msg)
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}
