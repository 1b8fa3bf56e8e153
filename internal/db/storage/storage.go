// Package storage declares the persistence contract shared by all
// storage backends. The store is the single source of truth; every
// operation is an atomic single-document read/modify/write, and no
// cross-entity transactions are offered.
package storage

import (
	"context"

	"conduit/internal/models"
)

// Storage is the full persistence surface. Lookups report absence with
// a false found flag rather than an error; uniqueness violations are
// returned as *models.ValidationError.
type Storage interface {
	CreateUser(ctx context.Context, usr *models.User) error

	FindUserByID(ctx context.Context, userID string) (*models.User, bool, error)

	FindUserByUsername(ctx context.Context, username string) (*models.User, bool, error)

	FindUserByEmail(ctx context.Context, email string) (*models.User, bool, error)

	SaveUser(ctx context.Context, usr *models.User) error

	AddFollow(ctx context.Context, userID, targetID string) error

	RemoveFollow(ctx context.Context, userID, targetID string) error

	AddFavorite(ctx context.Context, userID, articleID string) error

	RemoveFavorite(ctx context.Context, userID, articleID string) error

	CountFavorites(ctx context.Context, articleID string) (int, error)

	CreateArticle(ctx context.Context, article *models.Article) error

	FindArticleByID(ctx context.Context, articleID string) (*models.Article, bool, error)

	FindArticleBySlug(ctx context.Context, slug string) (*models.Article, bool, error)

	SaveArticle(ctx context.Context, article *models.Article) error

	DeleteArticle(ctx context.Context, articleID string) error

	ListArticles(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, int, error)

	DistinctTags(ctx context.Context) ([]string, error)

	CreateComment(ctx context.Context, comment *models.Comment) error

	FindCommentByID(ctx context.Context, commentID string) (*models.Comment, bool, error)

	DeleteComment(ctx context.Context, commentID string) error

	FindCommentsByArticle(ctx context.Context, articleID string) ([]*models.Comment, error)

	DeleteCommentsByArticle(ctx context.Context, articleID string) error

	Ping(ctx context.Context) error

	Close() error
}
