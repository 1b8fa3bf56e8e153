// Package feed composes the user directory and the article store to
// answer "articles by people I follow".
package feed

import (
	"context"

	"conduit/internal/models"
)

type userFinder interface {
	FindByID(ctx context.Context, userID string) (*models.User, bool, error)
}

type articleLister interface {
	ListByAuthors(ctx context.Context, authorIDs []string, limit, offset int) ([]*models.Article, int, error)
}

// Engine answers feed queries. Anonymous feed access is disallowed:
// the caller's identity must resolve to an existing user.
type Engine struct {
	users    userFinder
	articles articleLister
}

// New creates an Engine over the directory and article store.
func New(users userFinder, articles articleLister) *Engine {
	return &Engine{users: users, articles: articles}
}

// FeedFor returns the page of articles authored by users the given
// user follows, newest first, plus the total count. It fails with
// ErrUnauthorized when the identity does not resolve.
func (e *Engine) FeedFor(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]*models.Article, int, error) {
	usr, found, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if !found {
		return nil, 0, models.ErrUnauthorized
	}

	return e.articles.ListByAuthors(ctx, usr.Following, limit, offset)
}
