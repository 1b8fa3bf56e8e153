// Package models defines the domain entities of the publishing platform
// and the shared error taxonomy used across stores and services.
package models

import (
	"time"

	"github.com/thoas/go-funk"
)

// User represents a registered account. Following and Favorites are
// back-reference sets of user and article IDs owned by this document.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio"`
	Image        string    `json:"image"`
	Following    []string  `json:"following"`
	Favorites    []string  `json:"favorites"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsFollowing reports whether the user follows the user with the given ID.
func (u *User) IsFollowing(userID string) bool {
	return funk.ContainsString(u.Following, userID)
}

// IsFavorite reports whether the user has favorited the article with the given ID.
func (u *User) IsFavorite(articleID string) bool {
	return funk.ContainsString(u.Favorites, articleID)
}

// Article represents a published article. FavoritesCount is derived and
// recomputed after every favorite transition, never incremented in place.
type Article struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Body           string    `json:"body"`
	TagList        []string  `json:"tag_list"`
	AuthorID       string    `json:"author_id"`
	FavoritesCount int       `json:"favorites_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Comment represents a comment attached to an article.
type Comment struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"article_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArticleFilter is a conjunction of constraints for article listing.
// Zero-valued fields are not applied. A non-nil empty IDs slice matches
// nothing, which is how a lookup of favorites of an unknown user
// produces an empty page rather than an error.
type ArticleFilter struct {
	Tag       string
	AuthorID  string
	AuthorIDs []string
	IDs       []string
	Limit     int
	Offset    int
}

// DefaultPageLimit is applied when a listing request carries no limit.
const DefaultPageLimit = 20
