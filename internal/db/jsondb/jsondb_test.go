package jsondb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/models"
)

func newTestDB(t *testing.T) (*JSONDB, string) {
	t.Helper()

	fileName := filepath.Join(t.TempDir(), "conduit-db.json")
	theDB, err := New(fileName)
	require.NoError(t, err)

	return theDB, fileName
}

func storedUser(username string) *models.User {
	now := time.Now().UTC()

	return &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Following: []string{},
		Favorites: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func storedArticle(authorID, slug string) *models.Article {
	now := time.Now().UTC()

	return &models.Article{
		ID:        uuid.NewString(),
		Slug:      slug,
		Title:     "Stored",
		TagList:   []string{"kept"},
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	theDB, fileName := newTestDB(t)

	alice := storedUser("alice")
	require.NoError(t, theDB.CreateUser(context.Background(), alice))

	article := storedArticle(alice.ID, "kept-article-abc")
	require.NoError(t, theDB.CreateArticle(context.Background(), article))

	comment := &models.Comment{
		ID:        uuid.NewString(),
		ArticleID: article.ID,
		AuthorID:  alice.ID,
		Body:      "still here",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, theDB.CreateComment(context.Background(), comment))

	require.NoError(t, theDB.Close())

	reopened, err := New(fileName)
	require.NoError(t, err)

	loadedUser, found, err := reopened.FindUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, alice.ID, loadedUser.ID)

	loadedArticle, found, err := reopened.FindArticleBySlug(context.Background(), "kept-article-abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"kept"}, loadedArticle.TagList)

	loadedComments, err := reopened.FindCommentsByArticle(context.Background(), article.ID)
	require.NoError(t, err)
	require.Len(t, loadedComments, 1)
	assert.Equal(t, "still here", loadedComments[0].Body)
}

func TestUserUniqueness(t *testing.T) {
	theDB, _ := newTestDB(t)

	require.NoError(t, theDB.CreateUser(context.Background(), storedUser("alice")))

	duplicateUsername := storedUser("alice")
	duplicateUsername.Email = "other@example.com"
	err := theDB.CreateUser(context.Background(), duplicateUsername)
	validationErr, ok := models.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "is already taken", validationErr.Fields["username"])

	duplicateEmail := storedUser("bob")
	duplicateEmail.Email = "alice@example.com"
	err = theDB.CreateUser(context.Background(), duplicateEmail)
	validationErr, ok = models.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "is already taken", validationErr.Fields["email"])
}

func TestSlugUniqueness(t *testing.T) {
	theDB, _ := newTestDB(t)
	alice := storedUser("alice")
	require.NoError(t, theDB.CreateUser(context.Background(), alice))

	require.NoError(t, theDB.CreateArticle(context.Background(), storedArticle(alice.ID, "taken-slug")))

	err := theDB.CreateArticle(context.Background(), storedArticle(alice.ID, "taken-slug"))
	validationErr, ok := models.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "is already taken", validationErr.Fields["slug"])

	other := storedArticle(alice.ID, "free-slug")
	require.NoError(t, theDB.CreateArticle(context.Background(), other))

	other.Slug = "taken-slug"
	err = theDB.SaveArticle(context.Background(), other)
	_, ok = models.AsValidationError(err)
	assert.True(t, ok, "renaming onto a taken slug is rejected too")
}

func TestReturnedCopiesAreIsolated(t *testing.T) {
	theDB, _ := newTestDB(t)
	alice := storedUser("alice")
	require.NoError(t, theDB.CreateUser(context.Background(), alice))
	require.NoError(t, theDB.AddFollow(context.Background(), alice.ID, "someone"))

	loaded, found, err := theDB.FindUserByID(context.Background(), alice.ID)
	require.NoError(t, err)
	require.True(t, found)

	loaded.Username = "mutated"
	loaded.Following[0] = "tampered"

	reloaded, _, err := theDB.FindUserByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", reloaded.Username)
	assert.Equal(t, []string{"someone"}, reloaded.Following)
}

func TestDeleteArticleScrubsFavorites(t *testing.T) {
	theDB, _ := newTestDB(t)
	alice := storedUser("alice")
	bob := storedUser("bob")
	require.NoError(t, theDB.CreateUser(context.Background(), alice))
	require.NoError(t, theDB.CreateUser(context.Background(), bob))

	article := storedArticle(alice.ID, "fleeting")
	require.NoError(t, theDB.CreateArticle(context.Background(), article))
	require.NoError(t, theDB.AddFavorite(context.Background(), bob.ID, article.ID))

	require.NoError(t, theDB.DeleteArticle(context.Background(), article.ID))

	reloaded, _, err := theDB.FindUserByID(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Favorites, "dangling favorite references are removed")

	_, found, err := theDB.FindArticleByID(context.Background(), article.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListArticlesInsertionStableOrdering(t *testing.T) {
	theDB, _ := newTestDB(t)
	alice := storedUser("alice")
	require.NoError(t, theDB.CreateUser(context.Background(), alice))

	sharedTime := time.Now().UTC()
	var ids []string
	for _, slug := range []string{"first", "second", "third"} {
		article := storedArticle(alice.ID, slug)
		article.CreatedAt = sharedTime
		require.NoError(t, theDB.CreateArticle(context.Background(), article))
		ids = append(ids, article.ID)
	}

	listed, total, err := theDB.ListArticles(context.Background(), models.ArticleFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, listed, 3)
	assert.Equal(t, ids[0], listed[0].ID, "equal timestamps keep insertion order")
	assert.Equal(t, ids[2], listed[2].ID)
}
