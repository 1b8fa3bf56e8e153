// Package comments implements the comment store. A comment lives in
// the standalone store and on the owning article's ordered list; add
// and remove keep the two consistent with sequential single-document
// operations.
package comments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"conduit/internal/models"
)

type commentKeeper interface {
	FindArticleByID(ctx context.Context, articleID string) (*models.Article, bool, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	FindCommentByID(ctx context.Context, commentID string) (*models.Comment, bool, error)
	DeleteComment(ctx context.Context, commentID string) error
	FindCommentsByArticle(ctx context.Context, articleID string) ([]*models.Comment, error)
}

// Store is the comment store service.
type Store struct {
	db commentKeeper
}

// New creates a Store over the given storage.
func New(db commentKeeper) *Store {
	return &Store{db: db}
}

// Add creates a comment against an existing article and appends it to
// the article's comment list.
func (s *Store) Add(ctx context.Context, articleID, authorID, body string) (*models.Comment, error) {
	_, found, err := s.db.FindArticleByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrNotFound
	}

	now := time.Now().UTC()
	comment := &models.Comment{
		ID:        uuid.NewString(),
		ArticleID: articleID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	return comment, nil
}

// Remove deletes a comment from the store and the owning article's
// list. The existence check precedes the ownership check; only the
// comment's author may remove it. Identities are compared as plain
// strings throughout.
func (s *Store) Remove(ctx context.Context, articleID, commentID, requesterID string) error {
	comment, found, err := s.db.FindCommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if !found || comment.ArticleID != articleID {
		return models.ErrNotFound
	}
	if comment.AuthorID != requesterID {
		return models.ErrForbidden
	}

	return s.db.DeleteComment(ctx, commentID)
}

// ListForArticle returns the article's comments sorted by creation
// time descending.
func (s *Store) ListForArticle(ctx context.Context, articleID string) ([]*models.Comment, error) {
	_, found, err := s.db.FindArticleByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrNotFound
	}

	return s.db.FindCommentsByArticle(ctx, articleID)
}
