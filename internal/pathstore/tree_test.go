package pathstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/studyvault/internal/apperr"
	"github.com/starford/studyvault/internal/models"
	"github.com/starford/studyvault/internal/storage"
)

func newTree(t *testing.T, opts ...Option) (*Tree, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return New(mem, opts...), mem
}

// failingStore wraps a provider and fails every write once armed.
type failingStore struct {
	storage.Provider
	failWrites bool
	failReads  bool
}

func (f *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failReads {
		return "", false, errors.New("disk unavailable")
	}
	return f.Provider.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	if f.failWrites {
		return errors.New("disk full")
	}
	return f.Provider.Set(ctx, key, value)
}

func TestListChildren_Empty(t *testing.T) {
	tree, _ := newTree(t)
	items, err := tree.ListChildren(context.Background(), RootPath)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListChildren_GroupsThenNotebooksInInsertionOrder(t *testing.T) {
	tree, mem := newTree(t)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, RootPath, `["Zoo","Art"]`))
	require.NoError(t, mem.Set(ctx, RootPath+NotebookSuffix, `["b","a"]`))

	items, err := tree.ListChildren(ctx, RootPath)
	require.NoError(t, err)
	assert.Equal(t, []models.Item{
		models.Group("Zoo"), models.Group("Art"),
		models.Notebook("b"), models.Notebook("a"),
	}, items)
}

func TestListChildren_UnparseableIsEmpty(t *testing.T) {
	tree, mem := newTree(t)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, RootPath, `not json`))
	require.NoError(t, mem.Set(ctx, RootPath+NotebookSuffix, `null`))

	items, err := tree.ListChildren(ctx, RootPath)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListChildren_StorageError(t *testing.T) {
	tree := New(&failingStore{Provider: storage.NewMemory(), failReads: true})
	_, err := tree.ListChildren(context.Background(), RootPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestCreateChild_Notebook(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()

	item, err := tree.CreateChild(ctx, "Algebra", models.KindNotebook, RootPath, nil)
	require.NoError(t, err)
	assert.Equal(t, models.Notebook("Algebra"), item)

	items, err := tree.ListChildren(ctx, RootPath)
	require.NoError(t, err)
	assert.Equal(t, []models.Item{models.Notebook("Algebra")}, items)
}

func TestCreateChild_TrimsName(t *testing.T) {
	tree, _ := newTree(t)
	item, err := tree.CreateChild(context.Background(), "  Math \n", models.KindGroup, RootPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "Math", item.Name)
}

func TestCreateChild_EmptyNameNoMutation(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		tree, mem := newTree(t)
		_, err := tree.CreateChild(context.Background(), name, models.KindGroup, RootPath, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, "GROUP name cannot be empty", err.Error())

		keys, _ := mem.Keys(context.Background(), "")
		assert.Empty(t, keys, "name %q mutated storage", name)
	}
}

func TestCreateChild_ReservedName(t *testing.T) {
	tree, mem := newTree(t)
	_, err := tree.CreateChild(context.Background(), " _notebooks ", models.KindNotebook, RootPath, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "NOTEBOOK name cannot be _notebooks", err.Error())

	keys, _ := mem.Keys(context.Background(), "")
	assert.Empty(t, keys)
}

func TestCreateChild_NameWithSeparator(t *testing.T) {
	tree, mem := newTree(t)
	_, err := tree.CreateChild(context.Background(), "a/b", models.KindGroup, RootPath, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, `GROUP name cannot contain "/"`, err.Error())

	keys, _ := mem.Keys(context.Background(), "")
	assert.Empty(t, keys)
}

func TestGroupExists(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()
	_, err := tree.CreateChild(ctx, "Math", models.KindGroup, RootPath, nil)
	require.NoError(t, err)
	_, err = tree.CreateChild(ctx, "Algebra", models.KindNotebook, RootPath, nil)
	require.NoError(t, err)

	for path, want := range map[string]bool{
		RootPath:                    true,
		"/root/Math/":               true,
		"/root/Ghost/":              false,
		"/root/Math/Ghost/":         false,
		"/root/_notebooks/Algebra/": false,
		"/root/Algebra/":            false,
	} {
		got, err := tree.GroupExists(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, want, got, "path %q", path)
	}
}

func TestCreateChild_DuplicateFromSnapshot(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()

	first, err := tree.CreateChild(ctx, "Math", models.KindGroup, RootPath, nil)
	require.NoError(t, err)

	_, err = tree.CreateChild(ctx, "Math", models.KindGroup, RootPath, []models.Item{first})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestCreateChild_DuplicateFromStorageWithStaleSnapshot(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()

	_, err := tree.CreateChild(ctx, "Math", models.KindGroup, RootPath, nil)
	require.NoError(t, err)

	// Snapshot taken before the first create.
	_, err = tree.CreateChild(ctx, "Math", models.KindGroup, RootPath, nil)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	items, _ := tree.ListChildren(ctx, RootPath)
	assert.Len(t, items, 1)
}

func TestCreateChild_CaseSensitive(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()
	_, err := tree.CreateChild(ctx, "Math", models.KindGroup, RootPath, nil)
	require.NoError(t, err)
	_, err = tree.CreateChild(ctx, "math", models.KindGroup, RootPath, nil)
	require.NoError(t, err)
}

func TestCreateChild_GroupAndNotebookMayShareName(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()
	g, err := tree.CreateChild(ctx, "Physics", models.KindGroup, RootPath, nil)
	require.NoError(t, err)
	_, err = tree.CreateChild(ctx, "Physics", models.KindNotebook, RootPath, []models.Item{g})
	require.NoError(t, err)

	items, _ := tree.ListChildren(ctx, RootPath)
	assert.Equal(t, []models.Item{models.Group("Physics"), models.Notebook("Physics")}, items)
}

func TestCreateChild_SharedNamesForbidden(t *testing.T) {
	tree, _ := newTree(t, WithSharedNames(false))
	ctx := context.Background()
	_, err := tree.CreateChild(ctx, "Physics", models.KindGroup, RootPath, nil)
	require.NoError(t, err)

	_, err = tree.CreateChild(ctx, "Physics", models.KindNotebook, RootPath, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestCreateChild_UnknownKind(t *testing.T) {
	tree, _ := newTree(t)
	_, err := tree.CreateChild(context.Background(), "x", models.Kind(9), RootPath, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateChild_StorageErrorLeavesListUntouched(t *testing.T) {
	mem := storage.NewMemory()
	fs := &failingStore{Provider: mem}
	tree := New(fs)
	ctx := context.Background()

	_, err := tree.CreateChild(ctx, "Math", models.KindGroup, RootPath, nil)
	require.NoError(t, err)

	fs.failWrites = true
	_, err = tree.CreateChild(ctx, "Bio", models.KindGroup, RootPath, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.NotErrorIs(t, err, apperr.ErrValidation)

	raw, _, _ := mem.Get(ctx, RootPath)
	assert.Equal(t, `["Math"]`, raw)
}

func TestCreateChild_ConcurrentCreatesAreNotLost(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := tree.CreateChild(ctx, fmt.Sprintf("g%02d", i), models.KindGroup, RootPath, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	items, err := tree.ListChildren(ctx, RootPath)
	require.NoError(t, err)
	assert.Len(t, items, n)
}

func TestCreateChild_ConcurrentSameNameOnlyOneWins(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tree.CreateChild(ctx, "Math", models.KindGroup, RootPath, nil); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestScenario_GroupThenNotebookInside(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()

	_, err := tree.CreateChild(ctx, "Math", models.KindGroup, RootPath, nil)
	require.NoError(t, err)

	mathPath := GroupPath(RootPath, "Math")
	_, err = tree.CreateChild(ctx, "Calc1", models.KindNotebook, mathPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "/root/Math/_notebooks/Calc1", NotebookPath(mathPath, "Calc1"))

	items, err := tree.ListChildren(ctx, mathPath)
	require.NoError(t, err)
	assert.Equal(t, []models.Item{models.Notebook("Calc1")}, items)
}

func TestResetAll(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()

	_, _ = tree.CreateChild(ctx, "Math", models.KindGroup, RootPath, nil)
	_, _ = tree.CreateChild(ctx, "Calc1", models.KindNotebook, "/root/Math/", nil)
	_ = tree.SetArtifact(ctx, "/root/Math/_notebooks/Calc1", "transcript", "hello")

	require.NoError(t, tree.ResetAll(ctx))

	for _, p := range []string{RootPath, "/root/Math/"} {
		items, err := tree.ListChildren(ctx, p)
		require.NoError(t, err)
		assert.Empty(t, items)
	}
	_, err := tree.Artifact(ctx, "/root/Math/_notebooks/Calc1", "transcript")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// gatedStore blocks reads of one key until release is closed.
type gatedStore struct {
	storage.Provider
	key     string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == g.key {
		close(g.entered)
		<-g.release
	}
	return g.Provider.Get(ctx, key)
}

func TestResetAll_WaitsForInFlightCreate(t *testing.T) {
	mem := storage.NewMemory()
	gate := &gatedStore{Provider: mem, key: RootPath, entered: make(chan struct{}), release: make(chan struct{})}
	tree := New(gate)
	ctx := context.Background()

	created := make(chan error, 1)
	go func() {
		_, err := tree.CreateChild(ctx, "Math", models.KindGroup, RootPath, nil)
		created <- err
	}()
	<-gate.entered

	reset := make(chan error, 1)
	go func() { reset <- tree.ResetAll(ctx) }()

	select {
	case <-reset:
		t.Fatal("reset finished while a create was between its read and write")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	require.NoError(t, <-created)
	require.NoError(t, <-reset)

	keys, err := mem.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys, "create wrote its list back after the clear")
}

func TestArtifactRoundTrip(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()
	nb := NotebookPath(RootPath, "Algebra")

	cards := `[{"question":"2+2?","answer":"4"}]`
	require.NoError(t, tree.SetArtifact(ctx, nb, "flashcards", cards))
	got, err := tree.Artifact(ctx, nb, "flashcards")
	require.NoError(t, err)
	assert.Equal(t, cards, got)

	require.NoError(t, tree.SetArtifact(ctx, nb, "flashcards", "[]"))
	got, _ = tree.Artifact(ctx, nb, "flashcards")
	assert.Equal(t, "[]", got)
}

func TestArtifact_MissingAndInvalidField(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()
	nb := NotebookPath(RootPath, "Algebra")

	_, err := tree.Artifact(ctx, nb, "summary_title")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, tree.SetArtifact(ctx, nb, "", "x"), apperr.ErrValidation)
	assert.ErrorIs(t, tree.SetArtifact(ctx, nb, "a/b", "x"), apperr.ErrValidation)
}

func TestArtifactFields(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()
	nb := NotebookPath(RootPath, "Algebra")
	_ = tree.SetArtifact(ctx, nb, "transcript", "t")
	_ = tree.SetArtifact(ctx, nb, "yt_suggest", "[]")
	_ = tree.SetArtifact(ctx, NotebookPath(RootPath, "Other"), "transcript", "t")

	fields, err := tree.ArtifactFields(ctx, nb)
	require.NoError(t, err)
	assert.Equal(t, []string{"transcript", "yt_suggest"}, fields)
}

func TestUpdateArtifact_AbortsOnError(t *testing.T) {
	tree, _ := newTree(t)
	ctx := context.Background()
	nb := NotebookPath(RootPath, "Algebra")
	require.NoError(t, tree.SetArtifact(ctx, nb, "summary_title", "v1"))

	stop := errors.New("stop")
	err := tree.UpdateArtifact(ctx, nb, "summary_title", func(cur string, found bool) (string, error) {
		assert.True(t, found)
		assert.Equal(t, "v1", cur)
		return "", stop
	})
	assert.ErrorIs(t, err, stop)

	got, _ := tree.Artifact(ctx, nb, "summary_title")
	assert.Equal(t, "v1", got)
}
