package studyservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/studyvault/internal/apperr"
	"github.com/starford/studyvault/internal/artifact"
	"github.com/starford/studyvault/internal/checksum"
	"github.com/starford/studyvault/internal/index"
	"github.com/starford/studyvault/internal/models"
	"github.com/starford/studyvault/internal/pathstore"
	"github.com/starford/studyvault/internal/review"
	"github.com/starford/studyvault/internal/sse"
)

// ArtifactDetail is the full representation of a stored artifact.
type ArtifactDetail struct {
	Path     string `json:"path"`
	Field    string `json:"field"`
	Value    string `json:"value"`
	Checksum string `json:"checksum"`
}

// Notifier receives change notifications. *sse.Broker's PublishChange fits.
type Notifier func(kind, path string)

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the change notification sink.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithLogger sets the logger used for failures of derived state.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service coordinates the path tree, the artifact index and change events.
type Service struct {
	tree   *pathstore.Tree
	idx    index.ArtifactIndex
	notify Notifier
	logger *slog.Logger
}

// NewService creates a new study service. idx may be nil, which disables search.
func NewService(tree *pathstore.Tree, idx index.ArtifactIndex, opts ...Option) *Service {
	s := &Service{
		tree:   tree,
		idx:    idx,
		notify: func(string, string) {},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ListChildren returns the groups then notebooks directly under path.
func (s *Service) ListChildren(ctx context.Context, path string) ([]models.Item, error) {
	items, err := s.tree.ListChildren(ctx, path)
	if err != nil {
		s.logger.Error("list children failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil, err
	}
	return items, nil
}

// CreateChild creates a group or notebook under parent. existing is the
// caller's last listing of parent. parent must be the root or a group that
// has been created; otherwise apperr.ErrNotFound is returned.
func (s *Service) CreateChild(ctx context.Context, name string, kind models.Kind, parent string, existing []models.Item) (models.Item, error) {
	ok, err := s.tree.GroupExists(ctx, parent)
	if err != nil {
		s.logger.Error("create child failed", slog.String("parent", parent), slog.String("error", err.Error()))
		return models.Item{}, err
	}
	if !ok {
		return models.Item{}, fmt.Errorf("group %s: %w", parent, apperr.ErrNotFound)
	}
	item, err := s.tree.CreateChild(ctx, name, kind, parent, existing)
	if err != nil {
		if errors.Is(err, apperr.ErrStorage) {
			s.logger.Error("create child failed", slog.String("parent", parent), slog.String("error", err.Error()))
		}
		return models.Item{}, err
	}
	if item.IsGroup() {
		s.notify(sse.KindGroupCreated, pathstore.GroupPath(parent, item.Name))
	} else {
		s.notify(sse.KindNotebookCreated, pathstore.NotebookPath(parent, item.Name))
	}
	return item, nil
}

// ResetAll wipes every group, notebook and artifact.
func (s *Service) ResetAll(ctx context.Context) error {
	if err := s.tree.ResetAll(ctx); err != nil {
		s.logger.Error("reset failed", slog.String("error", err.Error()))
		return err
	}
	if s.idx != nil {
		if err := s.idx.Clear(); err != nil {
			s.logger.Warn("index clear failed", slog.String("error", err.Error()))
		}
	}
	s.notify(sse.KindStoreReset, pathstore.RootPath)
	return nil
}

// Artifact reads one field of a notebook.
func (s *Service) Artifact(ctx context.Context, notebookPath, field string) (*ArtifactDetail, error) {
	value, err := s.tree.Artifact(ctx, notebookPath, field)
	if err != nil {
		return nil, err
	}
	return detail(notebookPath, field, value), nil
}

// ArtifactFields lists the fields stored under a notebook.
func (s *Service) ArtifactFields(ctx context.Context, notebookPath string) ([]string, error) {
	return s.tree.ArtifactFields(ctx, notebookPath)
}

// SetArtifact validates and writes one field with optimistic concurrency:
// a non-empty ifMatch must equal the checksum of the current value.
func (s *Service) SetArtifact(ctx context.Context, notebookPath, field, value, ifMatch string) (*ArtifactDetail, error) {
	if err := artifact.Validate(field, value); err != nil {
		return nil, err
	}
	err := s.tree.UpdateArtifact(ctx, notebookPath, field, func(current string, found bool) (string, error) {
		if ifMatch != "" && (!found || ifMatch != checksum.String(current)) {
			return "", apperr.ErrConflict
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	s.indexArtifact(notebookPath, field, value)
	s.notify(sse.KindArtifactUpdated, notebookPath)
	return detail(notebookPath, field, value), nil
}

// ImportModelOutput stores generative-model output for a structured field
// after removing code fences and checking its shape.
func (s *Service) ImportModelOutput(ctx context.Context, notebookPath, field, raw string) (*ArtifactDetail, error) {
	var value string
	var err error
	switch field {
	case artifact.Flashcards:
		var cards []models.Flashcard
		if err = artifact.DecodeModelJSON(raw, &cards); err == nil {
			value, err = artifact.EncodeFlashcards(cards)
		}
	case artifact.Suggestions:
		var list []models.VideoSuggestion
		if err = artifact.DecodeModelJSON(raw, &list); err == nil {
			value, err = artifact.EncodeSuggestions(list)
		}
	default:
		return nil, apperr.Invalid(fmt.Sprintf("field %q does not take model output", field))
	}
	if err != nil {
		return nil, err
	}
	return s.SetArtifact(ctx, notebookPath, field, value, "")
}

// Flashcards returns the decoded flashcard deck of a notebook.
func (s *Service) Flashcards(ctx context.Context, notebookPath string) ([]models.Flashcard, error) {
	value, err := s.tree.Artifact(ctx, notebookPath, artifact.Flashcards)
	if err != nil {
		return nil, err
	}
	return artifact.DecodeFlashcards(value)
}

// SetFlashcards replaces the flashcard deck of a notebook.
func (s *Service) SetFlashcards(ctx context.Context, notebookPath string, cards []models.Flashcard) error {
	value, err := artifact.EncodeFlashcards(cards)
	if err != nil {
		return err
	}
	_, err = s.SetArtifact(ctx, notebookPath, artifact.Flashcards, value, "")
	return err
}

// Suggestions returns the decoded video suggestions of a notebook.
func (s *Service) Suggestions(ctx context.Context, notebookPath string) ([]models.VideoSuggestion, error) {
	value, err := s.tree.Artifact(ctx, notebookPath, artifact.Suggestions)
	if err != nil {
		return nil, err
	}
	return artifact.DecodeSuggestions(value)
}

// SetSuggestions replaces the video suggestions of a notebook.
func (s *Service) SetSuggestions(ctx context.Context, notebookPath string, list []models.VideoSuggestion) error {
	value, err := artifact.EncodeSuggestions(list)
	if err != nil {
		return err
	}
	_, err = s.SetArtifact(ctx, notebookPath, artifact.Suggestions, value, "")
	return err
}

// StartReview opens a review session over the notebook's flashcards.
func (s *Service) StartReview(ctx context.Context, notebookPath string) (*review.Session, error) {
	cards, err := s.Flashcards(ctx, notebookPath)
	if err != nil {
		return nil, err
	}
	return review.NewSession(cards)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.idx == nil {
		return []index.SearchResult{}, nil
	}
	return s.idx.Search(query, limit)
}

// The index is derived from the store and Sync repairs it, so a failed
// upsert does not fail the write.
func (s *Service) indexArtifact(notebookPath, field, value string) {
	if s.idx == nil || !artifact.IsText(field) {
		return
	}
	err := s.idx.Upsert(index.Entry{
		NotebookPath: notebookPath,
		Field:        field,
		Checksum:     checksum.String(value),
	}, value)
	if err != nil {
		s.logger.Warn("index artifact failed",
			slog.String("key", pathstore.ArtifactKey(notebookPath, field)),
			slog.String("error", err.Error()))
	}
}

func detail(notebookPath, field, value string) *ArtifactDetail {
	return &ArtifactDetail{
		Path:     notebookPath,
		Field:    field,
		Value:    value,
		Checksum: checksum.String(value),
	}
}
