package comments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/db/memorystorage"
	"conduit/internal/models"
)

func newTestArticle(t *testing.T, theStorage *memorystorage.MemoryStorage, authorID string) *models.Article {
	t.Helper()

	now := time.Now().UTC()
	article := &models.Article{
		ID:        uuid.NewString(),
		Slug:      "fixture-" + uuid.NewString(),
		Title:     "Fixture",
		AuthorID:  authorID,
		TagList:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, theStorage.CreateArticle(context.Background(), article))

	return article
}

func newTestStore(t *testing.T) (*Store, *memorystorage.MemoryStorage) {
	t.Helper()

	theStorage, err := memorystorage.New()
	require.NoError(t, err)

	return New(theStorage), theStorage
}

func TestAddToUnknownArticle(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Add(context.Background(), uuid.NewString(), uuid.NewString(), "hello")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddAndListNewestFirst(t *testing.T) {
	store, theStorage := newTestStore(t)
	authorID := uuid.NewString()
	article := newTestArticle(t, theStorage, authorID)

	first, err := store.Add(context.Background(), article.ID, authorID, "first")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := store.Add(context.Background(), article.ID, authorID, "second")
	require.NoError(t, err)

	listed, err := store.ListForArticle(context.Background(), article.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)
	assert.Equal(t, first.ID, listed[1].ID)
}

func TestListForUnknownArticle(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.ListForArticle(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRemoveAuthorization(t *testing.T) {
	store, theStorage := newTestStore(t)
	authorID := uuid.NewString()
	strangerID := uuid.NewString()
	article := newTestArticle(t, theStorage, authorID)

	comment, err := store.Add(context.Background(), article.ID, authorID, "mine")
	require.NoError(t, err)

	err = store.Remove(context.Background(), article.ID, comment.ID, strangerID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	err = store.Remove(context.Background(), article.ID, uuid.NewString(), strangerID)
	assert.ErrorIs(t, err, models.ErrNotFound, "existence is checked before ownership")
}

func TestRemoveUnderWrongArticle(t *testing.T) {
	store, theStorage := newTestStore(t)
	authorID := uuid.NewString()
	article := newTestArticle(t, theStorage, authorID)
	other := newTestArticle(t, theStorage, authorID)

	comment, err := store.Add(context.Background(), article.ID, authorID, "attached here")
	require.NoError(t, err)

	err = store.Remove(context.Background(), other.ID, comment.ID, authorID)
	assert.ErrorIs(t, err, models.ErrNotFound, "a comment is only addressable under its own article")
}

func TestRemove(t *testing.T) {
	store, theStorage := newTestStore(t)
	authorID := uuid.NewString()
	article := newTestArticle(t, theStorage, authorID)

	comment, err := store.Add(context.Background(), article.ID, authorID, "short-lived")
	require.NoError(t, err)

	require.NoError(t, store.Remove(context.Background(), article.ID, comment.ID, authorID))

	listed, err := store.ListForArticle(context.Background(), article.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	err = store.Remove(context.Background(), article.ID, comment.ID, authorID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
