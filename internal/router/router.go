// Package router wires the HTTP surface: request decoding, guard
// placement per endpoint, calls into the domain services and rendering
// of viewer-relative representations.
package router

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"conduit/internal/articles"
	"conduit/internal/auth"
	"conduit/internal/errresponse"
	"conduit/internal/logger"
	"conduit/internal/metrics"
	"conduit/internal/models"
	"conduit/internal/view"
)

type guard interface {
	Required(h http.Handler) http.Handler
	Optional(h http.Handler) http.Handler
}

type credentialService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	IssueToken(usr *models.User) (string, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, userID string) (*models.User, bool, error)
	FindByUsername(ctx context.Context, username string) (*models.User, bool, error)
	Follow(ctx context.Context, userID, targetID string) error
	Unfollow(ctx context.Context, userID, targetID string) error
	Favorite(ctx context.Context, userID, articleID string) error
	Unfavorite(ctx context.Context, userID, articleID string) error
	UpdateProfile(ctx context.Context, userID string, fields models.UpdateUserFields) (*models.User, error)
}

type articleStore interface {
	Create(ctx context.Context, authorID string, fields models.CreateArticleFields) (*models.Article, error)
	GetBySlug(ctx context.Context, slug string) (*models.Article, bool, error)
	Update(ctx context.Context, articleID, requesterID string, fields models.UpdateArticleFields) (*models.Article, error)
	Delete(ctx context.Context, articleID, requesterID string) error
	RecomputeFavoritesCount(ctx context.Context, articleID string) (*models.Article, error)
	List(ctx context.Context, query articles.ListQuery) ([]*models.Article, int, error)
	Tags(ctx context.Context) ([]string, error)
}

type commentStore interface {
	Add(ctx context.Context, articleID, authorID, body string) (*models.Comment, error)
	Remove(ctx context.Context, articleID, commentID, requesterID string) error
	ListForArticle(ctx context.Context, articleID string) ([]*models.Comment, error)
}

type feedEngine interface {
	FeedFor(ctx context.Context, userID string, limit, offset int) ([]*models.Article, int, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	credentials credentialService
	users       userDirectory
	articles    articleStore
	comments    commentStore
	feed        feedEngine
	db          pinger
}

// New assembles the chi mux over the domain services.
func New(
	credentials credentialService,
	users userDirectory,
	articles articleStore,
	comments commentStore,
	feed feedEngine,
	db pinger,
	requestGuard guard,
) *chi.Mux {
	h := &handlers{
		credentials: credentials,
		users:       users,
		articles:    articles,
		comments:    comments,
		feed:        feed,
		db:          db,
	}

	router := chi.NewRouter()
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(metrics.WithMetricsHTTPMiddleware)

	router.Get(`/ping`, h.GetPing)
	router.Method(http.MethodGet, `/metrics`, metrics.Handler())

	router.Route(`/api`, func(api chi.Router) {
		api.Post(`/users`, h.PostUsers)
		api.Post(`/users/login`, h.PostUsersLogin)

		api.With(requestGuard.Required).Get(`/user`, h.GetCurrentUser)
		api.With(requestGuard.Required).Put(`/user`, h.PutCurrentUser)

		api.Route(`/profiles/{username}`, func(profiles chi.Router) {
			profiles.With(requestGuard.Optional).Get(`/`, h.GetProfile)
			profiles.With(requestGuard.Required).Post(`/follow`, h.PostFollow)
			profiles.With(requestGuard.Required).Delete(`/follow`, h.DeleteFollow)
		})

		api.Route(`/articles`, func(articlesRouter chi.Router) {
			articlesRouter.With(requestGuard.Optional).Get(`/`, h.GetArticles)
			articlesRouter.With(requestGuard.Required).Get(`/feed`, h.GetArticlesFeed)
			articlesRouter.With(requestGuard.Required).Post(`/`, h.PostArticles)

			articlesRouter.Route(`/{slug}`, func(articleRouter chi.Router) {
				articleRouter.With(requestGuard.Optional).Get(`/`, h.GetArticle)
				articleRouter.With(requestGuard.Required).Put(`/`, h.PutArticle)
				articleRouter.With(requestGuard.Required).Delete(`/`, h.DeleteArticle)

				articleRouter.With(requestGuard.Required).Post(`/favorite`, h.PostFavorite)
				articleRouter.With(requestGuard.Required).Delete(`/favorite`, h.DeleteFavorite)

				articleRouter.With(requestGuard.Optional).Get(`/comments`, h.GetComments)
				articleRouter.With(requestGuard.Required).Post(`/comments`, h.PostComments)
				articleRouter.With(requestGuard.Required).Delete(`/comments/{commentID}`, h.DeleteComment)
			})
		})

		api.Get(`/tags`, h.GetTags)
	})

	return router
}

// currentUser resolves the guard-provided identity to a full user
// record. A required-auth endpoint whose identity no longer resolves
// is treated as unauthorized, mirroring an expired account.
func (h *handlers) currentUser(request *http.Request) (*models.User, error) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		return nil, models.ErrUnauthorized
	}

	usr, found, err := h.users.FindByID(request.Context(), userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrUnauthorized
	}

	return usr, nil
}

// viewer resolves the optional identity; an absent or stale credential
// yields a nil viewer.
func (h *handlers) viewer(request *http.Request) (*models.User, error) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		return nil, nil
	}

	usr, found, err := h.users.FindByID(request.Context(), userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	return usr, nil
}

func (h *handlers) articleBySlug(request *http.Request) (*models.Article, error) {
	slug := chi.URLParam(request, "slug")

	article, found, err := h.articles.GetBySlug(request.Context(), slug)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrNotFound
	}

	return article, nil
}

func (h *handlers) authorOf(ctx context.Context, article *models.Article) (*models.User, error) {
	author, found, err := h.users.FindByID(ctx, article.AuthorID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("article %s references missing author %s", article.ID, article.AuthorID)
	}

	return author, nil
}

func (h *handlers) articlesResponse(
	ctx context.Context,
	articlesList []*models.Article,
	total int,
	viewer *models.User,
) (*view.ArticlesResponse, error) {
	authors := map[string]*models.User{}
	views := make([]view.ArticleView, 0, len(articlesList))
	for _, article := range articlesList {
		author, resolved := authors[article.AuthorID]
		if !resolved {
			var err error
			author, err = h.authorOf(ctx, article)
			if err != nil {
				return nil, err
			}
			authors[article.AuthorID] = author
		}
		views = append(views, view.Article(article, author, viewer))
	}

	return &view.ArticlesResponse{Articles: views, ArticlesCount: total}, nil
}

func (h *handlers) renderOK(response http.ResponseWriter, request *http.Request, body render.Renderer) {
	if err := render.Render(response, request, body); err != nil {
		logger.Log.Debugln("Error rendering the response: ", zap.Error(err))
	}
}

func bindRequest(request *http.Request, payload render.Binder) error {
	if err := render.Bind(request, payload); err != nil {
		if _, ok := models.AsValidationError(err); ok {
			return err
		}

		return models.NewValidationError("body", "is invalid")
	}

	return nil
}

func pagination(request *http.Request) (limit, offset int) {
	limit = models.DefaultPageLimit
	offset = 0

	if raw := request.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if raw := request.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}

// GetPing reports storage health.
func (h *handlers) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := h.db.Ping(request.Context()); err != nil {
		logger.Log.Debugln("Error pinging the storage: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	response.WriteHeader(http.StatusOK)
}

// PostUsers registers a new account and responds with its auth view.
func (h *handlers) PostUsers(response http.ResponseWriter, request *http.Request) {
	payload := &models.RegisterRequest{}
	if err := bindRequest(request, payload); err != nil {
		errresponse.Write(response, request, err)

		return
	}

	usr, err := h.credentials.Register(
		request.Context(),
		payload.User.Username,
		payload.User.Email,
		payload.User.Password,
	)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.respondAuthUser(response, request, usr)
}

// PostUsersLogin authenticates an email/password pair.
func (h *handlers) PostUsersLogin(response http.ResponseWriter, request *http.Request) {
	payload := &models.LoginRequest{}
	if err := bindRequest(request, payload); err != nil {
		errresponse.Write(response, request, err)

		return
	}

	usr, err := h.credentials.Authenticate(request.Context(), payload.User.Email, payload.User.Password)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.respondAuthUser(response, request, usr)
}

func (h *handlers) respondAuthUser(response http.ResponseWriter, request *http.Request, usr *models.User) {
	token, err := h.credentials.IssueToken(usr)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.renderOK(response, request, &view.UserResponse{User: view.AuthUser(usr, token)})
}

// GetCurrentUser responds with the authenticated account and a fresh token.
func (h *handlers) GetCurrentUser(response http.ResponseWriter, request *http.Request) {
	usr, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.respondAuthUser(response, request, usr)
}

// PutCurrentUser applies a partial self-update.
func (h *handlers) PutCurrentUser(response http.ResponseWriter, request *http.Request) {
	usr, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	payload := &models.UpdateUserRequest{}
	if err := bindRequest(request, payload); err != nil {
		errresponse.Write(response, request, err)

		return
	}

	updated, err := h.users.UpdateProfile(request.Context(), usr.ID, payload.User)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.respondAuthUser(response, request, updated)
}

// GetProfile responds with a profile relative to the optional viewer.
func (h *handlers) GetProfile(response http.ResponseWriter, request *http.Request) {
	target, found, err := h.users.FindByUsername(request.Context(), chi.URLParam(request, "username"))
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}
	if !found {
		errresponse.Write(response, request, models.ErrNotFound)

		return
	}

	requestViewer, err := h.viewer(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.renderOK(response, request, &view.ProfileResponse{Profile: view.Profile(target, requestViewer)})
}

func (h *handlers) mutateFollow(
	response http.ResponseWriter,
	request *http.Request,
	mutate func(ctx context.Context, userID, targetID string) error,
) {
	usr, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	target, found, err := h.users.FindByUsername(request.Context(), chi.URLParam(request, "username"))
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}
	if !found {
		errresponse.Write(response, request, models.ErrNotFound)

		return
	}

	if err := mutate(request.Context(), usr.ID, target.ID); err != nil {
		errresponse.Write(response, request, err)

		return
	}

	// Reload the requester so the projected "following" flag reflects
	// the mutation just performed.
	refreshed, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.renderOK(response, request, &view.ProfileResponse{Profile: view.Profile(target, refreshed)})
}

// PostFollow adds the profile to the requester's following set.
func (h *handlers) PostFollow(response http.ResponseWriter, request *http.Request) {
	h.mutateFollow(response, request, h.users.Follow)
}

// DeleteFollow removes the profile from the requester's following set.
func (h *handlers) DeleteFollow(response http.ResponseWriter, request *http.Request) {
	h.mutateFollow(response, request, h.users.Unfollow)
}

// GetArticles lists articles filtered by tag, author and favoriting user.
func (h *handlers) GetArticles(response http.ResponseWriter, request *http.Request) {
	limit, offset := pagination(request)
	query := articles.ListQuery{
		Tag:         request.URL.Query().Get("tag"),
		Author:      request.URL.Query().Get("author"),
		FavoritedBy: request.URL.Query().Get("favorited"),
		Limit:       limit,
		Offset:      offset,
	}

	articlesList, total, err := h.articles.List(request.Context(), query)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	requestViewer, err := h.viewer(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	body, err := h.articlesResponse(request.Context(), articlesList, total, requestViewer)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.renderOK(response, request, body)
}

// GetArticlesFeed lists articles authored by users the requester follows.
func (h *handlers) GetArticlesFeed(response http.ResponseWriter, request *http.Request) {
	usr, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	limit, offset := pagination(request)

	articlesList, total, err := h.feed.FeedFor(request.Context(), usr.ID, limit, offset)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	body, err := h.articlesResponse(request.Context(), articlesList, total, usr)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.renderOK(response, request, body)
}

// PostArticles creates an article authored by the requester.
func (h *handlers) PostArticles(response http.ResponseWriter, request *http.Request) {
	usr, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	payload := &models.CreateArticleRequest{}
	if err := bindRequest(request, payload); err != nil {
		errresponse.Write(response, request, err)

		return
	}

	article, err := h.articles.Create(request.Context(), usr.ID, payload.Article)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.renderOK(response, request, &view.ArticleResponse{Article: view.Article(article, usr, usr)})
}

// GetArticle responds with a single article by slug.
func (h *handlers) GetArticle(response http.ResponseWriter, request *http.Request) {
	article, err := h.articleBySlug(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	author, err := h.authorOf(request.Context(), article)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	requestViewer, err := h.viewer(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.renderOK(response, request, &view.ArticleResponse{Article: view.Article(article, author, requestViewer)})
}

// PutArticle applies a partial update to the requester's own article.
func (h *handlers) PutArticle(response http.ResponseWriter, request *http.Request) {
	usr, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	article, err := h.articleBySlug(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	payload := &models.UpdateArticleRequest{}
	if err := bindRequest(request, payload); err != nil {
		errresponse.Write(response, request, err)

		return
	}

	updated, err := h.articles.Update(request.Context(), article.ID, usr.ID, payload.Article)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.renderOK(response, request, &view.ArticleResponse{Article: view.Article(updated, usr, usr)})
}

// DeleteArticle removes the requester's own article and its comments.
func (h *handlers) DeleteArticle(response http.ResponseWriter, request *http.Request) {
	usr, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	article, err := h.articleBySlug(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	if err := h.articles.Delete(request.Context(), article.ID, usr.ID); err != nil {
		errresponse.Write(response, request, err)

		return
	}

	response.WriteHeader(http.StatusNoContent)
}

func (h *handlers) mutateFavorite(
	response http.ResponseWriter,
	request *http.Request,
	mutate func(ctx context.Context, userID, articleID string) error,
) {
	usr, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	article, err := h.articleBySlug(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	if err := mutate(request.Context(), usr.ID, article.ID); err != nil {
		errresponse.Write(response, request, err)

		return
	}

	// The favorite toggle and the recompute are two sequential store
	// operations; the recompute converges the derived count.
	refreshedArticle, err := h.articles.RecomputeFavoritesCount(request.Context(), article.ID)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	author, err := h.authorOf(request.Context(), refreshedArticle)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	refreshedUser, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.renderOK(response, request, &view.ArticleResponse{
		Article: view.Article(refreshedArticle, author, refreshedUser),
	})
}

// PostFavorite marks the article as a favorite of the requester.
func (h *handlers) PostFavorite(response http.ResponseWriter, request *http.Request) {
	h.mutateFavorite(response, request, h.users.Favorite)
}

// DeleteFavorite removes the article from the requester's favorites.
func (h *handlers) DeleteFavorite(response http.ResponseWriter, request *http.Request) {
	h.mutateFavorite(response, request, h.users.Unfavorite)
}

// GetComments lists the article's comments newest first.
func (h *handlers) GetComments(response http.ResponseWriter, request *http.Request) {
	article, err := h.articleBySlug(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	commentsList, err := h.comments.ListForArticle(request.Context(), article.ID)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	requestViewer, err := h.viewer(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	authors := map[string]*models.User{}
	views := make([]view.CommentView, 0, len(commentsList))
	for _, comment := range commentsList {
		author, resolved := authors[comment.AuthorID]
		if !resolved {
			var found bool
			author, found, err = h.users.FindByID(request.Context(), comment.AuthorID)
			if err != nil {
				errresponse.Write(response, request, err)

				return
			}
			if !found {
				errresponse.Write(
					response,
					request,
					fmt.Errorf("comment %s references missing author %s", comment.ID, comment.AuthorID),
				)

				return
			}
			authors[comment.AuthorID] = author
		}
		views = append(views, view.Comment(comment, author, requestViewer))
	}

	h.renderOK(response, request, &view.CommentsResponse{Comments: views})
}

// PostComments creates a comment against the article.
func (h *handlers) PostComments(response http.ResponseWriter, request *http.Request) {
	usr, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	article, err := h.articleBySlug(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	payload := &models.CreateCommentRequest{}
	if err := bindRequest(request, payload); err != nil {
		errresponse.Write(response, request, err)

		return
	}

	comment, err := h.comments.Add(request.Context(), article.ID, usr.ID, payload.Comment.Body)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.renderOK(response, request, &view.CommentResponse{Comment: view.Comment(comment, usr, usr)})
}

// DeleteComment removes the requester's own comment.
func (h *handlers) DeleteComment(response http.ResponseWriter, request *http.Request) {
	usr, err := h.currentUser(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	article, err := h.articleBySlug(request)
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	commentID := chi.URLParam(request, "commentID")
	if err := h.comments.Remove(request.Context(), article.ID, commentID, usr.ID); err != nil {
		errresponse.Write(response, request, err)

		return
	}

	response.WriteHeader(http.StatusNoContent)
}

// GetTags responds with the distinct union of all tag lists.
func (h *handlers) GetTags(response http.ResponseWriter, request *http.Request) {
	tags, err := h.articles.Tags(request.Context())
	if err != nil {
		errresponse.Write(response, request, err)

		return
	}

	h.renderOK(response, request, &view.TagsResponse{Tags: tags})
}
