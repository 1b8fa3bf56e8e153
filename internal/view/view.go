// Package view holds the pure projection functions turning entities
// into viewer-relative representations, plus the response envelopes
// the HTTP boundary renders. Nothing here touches storage: callers
// pass fully resolved entities and an optional viewer.
package view

import (
	"net/http"
	"time"

	"conduit/internal/models"
)

// ProfileView is a user as seen by an optional viewer.
type ProfileView struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

// Profile projects a user relative to the viewer. An anonymous viewer
// never follows anyone.
func Profile(target *models.User, viewer *models.User) ProfileView {
	return ProfileView{
		Username:  target.Username,
		Bio:       target.Bio,
		Image:     target.Image,
		Following: viewer != nil && viewer.IsFollowing(target.ID),
	}
}

// UserView is the authenticated self-representation with a fresh token.
type UserView struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
	Token    string `json:"token"`
}

// AuthUser projects the account together with its bearer token.
func AuthUser(usr *models.User, token string) UserView {
	return UserView{
		Username: usr.Username,
		Email:    usr.Email,
		Bio:      usr.Bio,
		Image:    usr.Image,
		Token:    token,
	}
}

// ArticleView is an article as seen by an optional viewer.
type ArticleView struct {
	Slug           string      `json:"slug"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Body           string      `json:"body"`
	TagList        []string    `json:"tagList"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	Favorited      bool        `json:"favorited"`
	FavoritesCount int         `json:"favoritesCount"`
	Author         ProfileView `json:"author"`
}

// Article projects an article with its resolved author relative to the
// viewer.
func Article(article *models.Article, author *models.User, viewer *models.User) ArticleView {
	tagList := article.TagList
	if tagList == nil {
		tagList = []string{}
	}

	return ArticleView{
		Slug:           article.Slug,
		Title:          article.Title,
		Description:    article.Description,
		Body:           article.Body,
		TagList:        tagList,
		CreatedAt:      article.CreatedAt,
		UpdatedAt:      article.UpdatedAt,
		Favorited:      viewer != nil && viewer.IsFavorite(article.ID),
		FavoritesCount: article.FavoritesCount,
		Author:         Profile(author, viewer),
	}
}

// CommentView is a comment as seen by an optional viewer.
type CommentView struct {
	ID        string      `json:"id"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Author    ProfileView `json:"author"`
}

// Comment projects a comment with its resolved author relative to the
// viewer.
func Comment(comment *models.Comment, author *models.User, viewer *models.User) CommentView {
	return CommentView{
		ID:        comment.ID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
		Author:    Profile(author, viewer),
	}
}

// UserResponse is the {user: …} envelope.
type UserResponse struct {
	User UserView `json:"user"`
}

// Render implements render.Renderer.
func (r *UserResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

// ProfileResponse is the {profile: …} envelope.
type ProfileResponse struct {
	Profile ProfileView `json:"profile"`
}

// Render implements render.Renderer.
func (r *ProfileResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

// ArticleResponse is the {article: …} envelope.
type ArticleResponse struct {
	Article ArticleView `json:"article"`
}

// Render implements render.Renderer.
func (r *ArticleResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

// ArticlesResponse is the {articles: …, articlesCount: n} envelope.
type ArticlesResponse struct {
	Articles      []ArticleView `json:"articles"`
	ArticlesCount int           `json:"articlesCount"`
}

// Render implements render.Renderer.
func (r *ArticlesResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

// CommentResponse is the {comment: …} envelope.
type CommentResponse struct {
	Comment CommentView `json:"comment"`
}

// Render implements render.Renderer.
func (r *CommentResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

// CommentsResponse is the {comments: …} envelope.
type CommentsResponse struct {
	Comments []CommentView `json:"comments"`
}

// Render implements render.Renderer.
func (r *CommentsResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

// TagsResponse is the {tags: …} envelope.
type TagsResponse struct {
	Tags []string `json:"tags"`
}

// Render implements render.Renderer.
func (r *TagsResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}
