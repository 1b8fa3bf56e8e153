package articles

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/db/memorystorage"
	"conduit/internal/models"
)

func newTestUser(t *testing.T, theStorage *memorystorage.MemoryStorage, username string) *models.User {
	t.Helper()

	now := time.Now().UTC()
	usr := &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Following: []string{},
		Favorites: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, theStorage.CreateUser(context.Background(), usr))

	return usr
}

func newTestStore(t *testing.T) (*Store, *memorystorage.MemoryStorage) {
	t.Helper()

	theStorage, err := memorystorage.New()
	require.NoError(t, err)

	return New(theStorage), theStorage
}

var slugPattern = regexp.MustCompile(`^how-to-train-your-dragon-[0-9a-z]{1,6}$`)

func TestCreateAssignsSlug(t *testing.T) {
	store, theStorage := newTestStore(t)
	author := newTestUser(t, theStorage, "alice")

	article, err := store.Create(context.Background(), author.ID, models.CreateArticleFields{
		Title:       "How to Train: Your Dragon!",
		Description: "Ever wonder how?",
		Body:        "You have to believe",
		TagList:     []string{"dragons", "training"},
	})
	require.NoError(t, err)

	assert.Regexp(t, slugPattern, article.Slug)
	assert.Equal(t, author.ID, article.AuthorID)
	assert.Equal(t, 0, article.FavoritesCount)
	assert.Equal(t, []string{"dragons", "training"}, article.TagList)
}

func TestCreateSlugsAreUnique(t *testing.T) {
	store, theStorage := newTestStore(t)
	author := newTestUser(t, theStorage, "alice")

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		article, err := store.Create(context.Background(), author.ID, models.CreateArticleFields{
			Title: "Same Title",
		})
		require.NoError(t, err)
		assert.False(t, seen[article.Slug], "slug %q repeated", article.Slug)
		seen[article.Slug] = true
	}
}

func TestUpdatePartialFields(t *testing.T) {
	store, theStorage := newTestStore(t)
	author := newTestUser(t, theStorage, "alice")

	article, err := store.Create(context.Background(), author.ID, models.CreateArticleFields{
		Title:       "Original Title",
		Description: "original description",
		Body:        "original body",
		TagList:     []string{"one"},
	})
	require.NoError(t, err)

	newBody := "updated body"
	updated, err := store.Update(context.Background(), article.ID, author.ID, models.UpdateArticleFields{
		Body: &newBody,
	})
	require.NoError(t, err)

	assert.Equal(t, "updated body", updated.Body)
	assert.Equal(t, "Original Title", updated.Title, "omitted fields stay unchanged")
	assert.Equal(t, "original description", updated.Description)
	assert.Equal(t, article.Slug, updated.Slug, "slug is not re-derived")

	emptyDescription := ""
	updated, err = store.Update(context.Background(), article.ID, author.ID, models.UpdateArticleFields{
		Description: &emptyDescription,
	})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Description, "present empty fields overwrite")
}

func TestUpdateAuthorization(t *testing.T) {
	store, theStorage := newTestStore(t)
	author := newTestUser(t, theStorage, "alice")
	stranger := newTestUser(t, theStorage, "bob")

	article, err := store.Create(context.Background(), author.ID, models.CreateArticleFields{
		Title: "Protected",
	})
	require.NoError(t, err)

	newTitle := "Hijacked"
	_, err = store.Update(context.Background(), article.ID, stranger.ID, models.UpdateArticleFields{
		Title: &newTitle,
	})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = store.Update(context.Background(), uuid.NewString(), stranger.ID, models.UpdateArticleFields{})
	assert.ErrorIs(t, err, models.ErrNotFound, "existence is checked before ownership")
}

func TestDeleteCascadesComments(t *testing.T) {
	store, theStorage := newTestStore(t)
	author := newTestUser(t, theStorage, "alice")

	article, err := store.Create(context.Background(), author.ID, models.CreateArticleFields{
		Title: "Doomed",
	})
	require.NoError(t, err)

	comment := &models.Comment{
		ID:        uuid.NewString(),
		ArticleID: article.ID,
		AuthorID:  author.ID,
		Body:      "so long",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, theStorage.CreateComment(context.Background(), comment))

	stranger := newTestUser(t, theStorage, "bob")
	err = store.Delete(context.Background(), article.ID, stranger.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, store.Delete(context.Background(), article.ID, author.ID))

	_, found, err := store.GetBySlug(context.Background(), article.Slug)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = theStorage.FindCommentByID(context.Background(), comment.ID)
	require.NoError(t, err)
	assert.False(t, found, "owned comments are deleted with the article")
}

func TestRecomputeFavoritesCount(t *testing.T) {
	store, theStorage := newTestStore(t)
	author := newTestUser(t, theStorage, "alice")
	bob := newTestUser(t, theStorage, "bob")
	carol := newTestUser(t, theStorage, "carol")

	article, err := store.Create(context.Background(), author.ID, models.CreateArticleFields{
		Title: "Popular",
	})
	require.NoError(t, err)

	require.NoError(t, theStorage.AddFavorite(context.Background(), bob.ID, article.ID))
	require.NoError(t, theStorage.AddFavorite(context.Background(), carol.ID, article.ID))
	// A repeated favorite must not inflate the count.
	require.NoError(t, theStorage.AddFavorite(context.Background(), bob.ID, article.ID))

	refreshed, err := store.RecomputeFavoritesCount(context.Background(), article.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.FavoritesCount)

	require.NoError(t, theStorage.RemoveFavorite(context.Background(), carol.ID, article.ID))

	refreshed, err = store.RecomputeFavoritesCount(context.Background(), article.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.FavoritesCount)
}

func TestListFiltersAndPagination(t *testing.T) {
	store, theStorage := newTestStore(t)
	alice := newTestUser(t, theStorage, "alice")
	bob := newTestUser(t, theStorage, "bob")

	var created []*models.Article
	for _, seed := range []struct {
		author *models.User
		title  string
		tags   []string
	}{
		{alice, "First", []string{"go"}},
		{bob, "Second", []string{"go", "web"}},
		{alice, "Third", []string{"web"}},
	} {
		article, err := store.Create(context.Background(), seed.author.ID, models.CreateArticleFields{
			Title:   seed.title,
			TagList: seed.tags,
		})
		require.NoError(t, err)
		created = append(created, article)
		time.Sleep(5 * time.Millisecond)
	}

	t.Run("no filter returns newest first", func(t *testing.T) {
		result, total, err := store.List(context.Background(), ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, result, 3)
		assert.Equal(t, created[2].ID, result[0].ID)
		assert.Equal(t, created[0].ID, result[2].ID)
	})

	t.Run("tag filter", func(t *testing.T) {
		result, total, err := store.List(context.Background(), ListQuery{Tag: "go"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, result, 2)
		assert.Equal(t, created[1].ID, result[0].ID)
	})

	t.Run("author filter", func(t *testing.T) {
		result, total, err := store.List(context.Background(), ListQuery{Author: "alice"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		for _, article := range result {
			assert.Equal(t, alice.ID, article.AuthorID)
		}
	})

	t.Run("unknown author leaves the filter unapplied", func(t *testing.T) {
		_, total, err := store.List(context.Background(), ListQuery{Author: "nobody"})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
	})

	t.Run("favorited filter", func(t *testing.T) {
		require.NoError(t, theStorage.AddFavorite(context.Background(), bob.ID, created[0].ID))

		result, total, err := store.List(context.Background(), ListQuery{FavoritedBy: "bob"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, result, 1)
		assert.Equal(t, created[0].ID, result[0].ID)
	})

	t.Run("unknown favorited user yields empty result", func(t *testing.T) {
		result, total, err := store.List(context.Background(), ListQuery{FavoritedBy: "nobody"})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, result)
	})

	t.Run("pagination", func(t *testing.T) {
		result, total, err := store.List(context.Background(), ListQuery{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, total, "the total counts every match, not the page")
		require.Len(t, result, 1)
		assert.Equal(t, created[1].ID, result[0].ID)
	})

	t.Run("offset beyond range", func(t *testing.T) {
		result, total, err := store.List(context.Background(), ListQuery{Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Empty(t, result)
	})
}

func TestTags(t *testing.T) {
	store, theStorage := newTestStore(t)
	author := newTestUser(t, theStorage, "alice")

	for _, tags := range [][]string{{"go", "web"}, {"go"}, {"dragons"}} {
		_, err := store.Create(context.Background(), author.ID, models.CreateArticleFields{
			Title:   "Tagged",
			TagList: tags,
		})
		require.NoError(t, err)
	}

	tags, err := store.Tags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"dragons", "go", "web"}, tags)
}
