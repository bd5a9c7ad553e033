package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osintgraph/internal/domain"
	"osintgraph/internal/repository"
)

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

func sampleDocument() *domain.Document {
	doc := domain.NewDocument()
	doc.Nodes = append(doc.Nodes,
		domain.DocumentNode{ID: "alice", Attributes: domain.Attributes{
			"age":     domain.Int(34),
			"aliases": domain.List(domain.String("al"), domain.String("ally")),
		}},
		domain.DocumentNode{ID: "acme", Attributes: domain.Attributes{}},
	)
	doc.Links = append(doc.Links, domain.DocumentLink{Source: "acme", Target: "alice", Relation: "employs"})
	return doc
}

func TestSaveAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	info, err := repo.Save(ctx, "  case 42 ", sampleDocument())
	require.NoError(t, err)

	_, err = uuid.Parse(info.ID)
	require.NoError(t, err)
	assert.Equal(t, "case 42", info.Label)
	assert.Equal(t, 2, info.NodeCount)
	assert.Equal(t, 1, info.LinkCount)

	got, err := repo.Get(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
	assert.Equal(t, "case 42", got.Label)
	assert.True(t, info.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, sampleDocument(), got.Document)
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestSaveEmptyDocument(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	info, err := repo.Save(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, info.NodeCount)

	got, err := repo.Get(ctx, info.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Label)
	assert.NotNil(t, got.Document.Nodes)
	assert.NotNil(t, got.Document.Links)
}

func TestListAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sessions, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	first, err := repo.Save(ctx, "first", sampleDocument())
	require.NoError(t, err)
	second, err := repo.Save(ctx, "second", domain.NewDocument())
	require.NoError(t, err)

	sessions, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	ids := []string{sessions[0].ID, sessions[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
	assert.False(t, sessions[0].CreatedAt.Before(sessions[1].CreatedAt))

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), repository.ErrSessionNotFound)

	sessions, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, second.ID, sessions[0].ID)
}

func TestFileDatabaseReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	ctx := context.Background()

	repo, err := New(path)
	require.NoError(t, err)
	info, err := repo.Save(ctx, "persisted", sampleDocument())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Label)
}
