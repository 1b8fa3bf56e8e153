// Package articles implements the article store: slug assignment,
// authorized mutation, filtered listing and the derived favorites
// count. The count is recomputed from the favoriting users on every
// transition rather than incremented, so concurrent partial updates
// can only leave a stale value until the next recompute, never a
// diverging one.
package articles

import (
	"context"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"conduit/internal/models"
)

type articleKeeper interface {
	CreateArticle(ctx context.Context, article *models.Article) error
	FindArticleByID(ctx context.Context, articleID string) (*models.Article, bool, error)
	FindArticleBySlug(ctx context.Context, slug string) (*models.Article, bool, error)
	SaveArticle(ctx context.Context, article *models.Article) error
	DeleteArticle(ctx context.Context, articleID string) error
	ListArticles(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, int, error)
	DistinctTags(ctx context.Context) ([]string, error)
	CountFavorites(ctx context.Context, articleID string) (int, error)
	DeleteCommentsByArticle(ctx context.Context, articleID string) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, bool, error)
}

// Store is the article store service.
type Store struct {
	db articleKeeper
}

// New creates a Store over the given storage.
func New(db articleKeeper) *Store {
	return &Store{db: db}
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// suffixSpace is 36^6, matching a six-digit base36 random suffix.
const suffixSpace = 2176782336

func slugify(title string) string {
	kebab := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	kebab = strings.Trim(kebab, "-")
	suffix := strconv.FormatInt(rand.Int63n(suffixSpace), 36)

	if kebab == "" {
		return suffix
	}

	return kebab + "-" + suffix
}

// Create assigns a slug derived from the title plus a random base36
// suffix and stores the article. There is no collision retry: a slug
// collision is astronomically unlikely and surfaces as the store's
// uniqueness ValidationError if it ever happens.
func (s *Store) Create(
	ctx context.Context,
	authorID string,
	fields models.CreateArticleFields,
) (*models.Article, error) {
	now := time.Now().UTC()
	article := &models.Article{
		ID:          uuid.NewString(),
		Slug:        slugify(fields.Title),
		Title:       fields.Title,
		Description: fields.Description,
		Body:        fields.Body,
		TagList:     append([]string{}, fields.TagList...),
		AuthorID:    authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.CreateArticle(ctx, article); err != nil {
		return nil, err
	}

	return article, nil
}

// GetBySlug looks an article up by its slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*models.Article, bool, error) {
	return s.db.FindArticleBySlug(ctx, slug)
}

// Update applies the fields present in the partial input to the
// article. The existence check precedes the ownership check; only the
// author may update. The slug is not re-derived on title changes.
func (s *Store) Update(
	ctx context.Context,
	articleID string,
	requesterID string,
	fields models.UpdateArticleFields,
) (*models.Article, error) {
	article, found, err := s.db.FindArticleByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrNotFound
	}
	if article.AuthorID != requesterID {
		return nil, models.ErrForbidden
	}

	if fields.Title != nil {
		article.Title = *fields.Title
	}
	if fields.Description != nil {
		article.Description = *fields.Description
	}
	if fields.Body != nil {
		article.Body = *fields.Body
	}
	if fields.TagList != nil {
		article.TagList = append([]string{}, (*fields.TagList)...)
	}

	article.UpdatedAt = time.Now().UTC()

	if err := s.db.SaveArticle(ctx, article); err != nil {
		return nil, err
	}

	return article, nil
}

// Delete removes the article and cascades to its owned comments. Only
// the author may delete.
func (s *Store) Delete(ctx context.Context, articleID, requesterID string) error {
	article, found, err := s.db.FindArticleByID(ctx, articleID)
	if err != nil {
		return err
	}
	if !found {
		return models.ErrNotFound
	}
	if article.AuthorID != requesterID {
		return models.ErrForbidden
	}

	if err := s.db.DeleteCommentsByArticle(ctx, articleID); err != nil {
		return err
	}

	return s.db.DeleteArticle(ctx, articleID)
}

// RecomputeFavoritesCount sets the derived count to the current number
// of favoriting users and returns the refreshed article. It is invoked
// after every favorite and unfavorite transition.
func (s *Store) RecomputeFavoritesCount(ctx context.Context, articleID string) (*models.Article, error) {
	article, found, err := s.db.FindArticleByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrNotFound
	}

	count, err := s.db.CountFavorites(ctx, articleID)
	if err != nil {
		return nil, err
	}

	article.FavoritesCount = count
	article.UpdatedAt = time.Now().UTC()

	if err := s.db.SaveArticle(ctx, article); err != nil {
		return nil, err
	}

	return article, nil
}

// ListQuery is the external filter of a listing request, expressed in
// usernames rather than identities.
type ListQuery struct {
	Tag         string
	Author      string
	FavoritedBy string
	Limit       int
	Offset      int
}

// List returns the filtered article page plus the total match count.
// An unknown FavoritedBy user yields an empty result rather than an
// error; an unknown Author leaves the author filter unapplied, which
// is the behavior the stored relation model always had.
func (s *Store) List(ctx context.Context, query ListQuery) ([]*models.Article, int, error) {
	filter := models.ArticleFilter{
		Tag:    query.Tag,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if filter.Limit <= 0 {
		filter.Limit = models.DefaultPageLimit
	}

	if query.Author != "" {
		author, found, err := s.db.FindUserByUsername(ctx, query.Author)
		if err != nil {
			return nil, 0, err
		}
		if found {
			filter.AuthorID = author.ID
		}
	}

	if query.FavoritedBy != "" {
		favoriter, found, err := s.db.FindUserByUsername(ctx, query.FavoritedBy)
		if err != nil {
			return nil, 0, err
		}
		if found {
			filter.IDs = append([]string{}, favoriter.Favorites...)
		} else {
			filter.IDs = []string{}
		}
	}

	return s.db.ListArticles(ctx, filter)
}

// ListByAuthors returns the page of articles authored by any of the
// given users, newest first. It backs the feed.
func (s *Store) ListByAuthors(
	ctx context.Context,
	authorIDs []string,
	limit, offset int,
) ([]*models.Article, int, error) {
	if limit <= 0 {
		limit = models.DefaultPageLimit
	}

	return s.db.ListArticles(ctx, models.ArticleFilter{
		AuthorIDs: append([]string{}, authorIDs...),
		Limit:     limit,
		Offset:    offset,
	})
}

// Tags returns the distinct union of all articles' tag lists.
func (s *Store) Tags(ctx context.Context) ([]string, error) {
	return s.db.DistinctTags(ctx)
}
