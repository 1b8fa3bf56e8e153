// Package jsondb implements the document store over an in-memory cache
// persisted to a single JSON file: loaded on New, flushed on Close.
// Every operation is a mutex-serialized single-document read or
// read/modify/write, and returned documents are clones, so callers can
// never mutate the cache through a lookup result.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/thoas/go-funk"

	"conduit/internal/models"
)

// JSONDB keeps the whole document store in memory and persists it to a
// single JSON file on Close. Single-document operations are serialized
// by a mutex, which gives the atomic read/modify/write the services
// rely on.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

type CacheStruct struct {
	Users           map[string]*models.User
	Articles        map[string]*models.Article
	ArticleOrder    []string
	Comments        map[string]*models.Comment
	ArticleComments map[string][]string
}

func NewCache() CacheStruct {
	return CacheStruct{
		Users:           map[string]*models.User{},
		Articles:        map[string]*models.Article{},
		ArticleOrder:    []string{},
		Comments:        map[string]*models.Comment{},
		ArticleComments: map[string][]string{},
	}
}

func initDBFile(fileName string) error {
	content, err := json.MarshalIndent(NewCache(), "", "\t")
	if err != nil {
		return err
	}

	return os.WriteFile(fileName, content, 0644)
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	if err := os.WriteFile(fileName, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func New(fileName string) (*JSONDB, error) {
	theDB := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		if err := initDBFile(fileName); err != nil {
			return nil, err
		}
	}

	if err := parseJSONFile(fileName, &theDB.Cache); err != nil {
		return nil, err
	}

	return theDB, nil
}

func (db *JSONDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

func cloneUser(usr *models.User) *models.User {
	clone := *usr
	clone.Following = append([]string{}, usr.Following...)
	clone.Favorites = append([]string{}, usr.Favorites...)

	return &clone
}

func cloneArticle(article *models.Article) *models.Article {
	clone := *article
	clone.TagList = append([]string{}, article.TagList...)

	return &clone
}

func cloneComment(comment *models.Comment) *models.Comment {
	clone := *comment

	return &clone
}

func (db *JSONDB) checkUserUniqueness(usr *models.User) error {
	for _, existing := range db.Cache.Users {
		if existing.ID == usr.ID {
			continue
		}
		if existing.Username == usr.Username {
			return models.NewValidationError("username", "is already taken")
		}
		if existing.Email == usr.Email {
			return models.NewValidationError("email", "is already taken")
		}
	}

	return nil
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkUserUniqueness(usr); err != nil {
		return err
	}

	db.Cache.Users[usr.ID] = cloneUser(usr)

	return nil
}

func (db *JSONDB) FindUserByID(ctx context.Context, userID string) (*models.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, false, nil
	}

	return cloneUser(usr), true, nil
}

func (db *JSONDB) FindUserByUsername(ctx context.Context, username string) (*models.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, usr := range db.Cache.Users {
		if usr.Username == username {
			return cloneUser(usr), true, nil
		}
	}

	return nil, false, nil
}

func (db *JSONDB) FindUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, usr := range db.Cache.Users {
		if usr.Email == email {
			return cloneUser(usr), true, nil
		}
	}

	return nil, false, nil
}

func (db *JSONDB) SaveUser(ctx context.Context, usr *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Users[usr.ID]; !found {
		return models.ErrNotFound
	}

	if err := db.checkUserUniqueness(usr); err != nil {
		return err
	}

	db.Cache.Users[usr.ID] = cloneUser(usr)

	return nil
}

func (db *JSONDB) AddFollow(ctx context.Context, userID, targetID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return models.ErrNotFound
	}

	if !funk.ContainsString(usr.Following, targetID) {
		usr.Following = append(usr.Following, targetID)
	}

	return nil
}

func (db *JSONDB) RemoveFollow(ctx context.Context, userID, targetID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return models.ErrNotFound
	}

	usr.Following = funk.FilterString(usr.Following, func(id string) bool {
		return id != targetID
	})

	return nil
}

func (db *JSONDB) AddFavorite(ctx context.Context, userID, articleID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return models.ErrNotFound
	}

	if !funk.ContainsString(usr.Favorites, articleID) {
		usr.Favorites = append(usr.Favorites, articleID)
	}

	return nil
}

func (db *JSONDB) RemoveFavorite(ctx context.Context, userID, articleID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return models.ErrNotFound
	}

	usr.Favorites = funk.FilterString(usr.Favorites, func(id string) bool {
		return id != articleID
	})

	return nil
}

func (db *JSONDB) CountFavorites(ctx context.Context, articleID string) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	for _, usr := range db.Cache.Users {
		if funk.ContainsString(usr.Favorites, articleID) {
			count++
		}
	}

	return count, nil
}

func (db *JSONDB) CreateArticle(ctx context.Context, article *models.Article) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.Cache.Articles {
		if existing.Slug == article.Slug {
			return models.NewValidationError("slug", "is already taken")
		}
	}

	db.Cache.Articles[article.ID] = cloneArticle(article)
	db.Cache.ArticleOrder = append(db.Cache.ArticleOrder, article.ID)
	db.Cache.ArticleComments[article.ID] = []string{}

	return nil
}

func (db *JSONDB) FindArticleByID(ctx context.Context, articleID string) (*models.Article, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	article, found := db.Cache.Articles[articleID]
	if !found {
		return nil, false, nil
	}

	return cloneArticle(article), true, nil
}

func (db *JSONDB) FindArticleBySlug(ctx context.Context, slug string) (*models.Article, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, article := range db.Cache.Articles {
		if article.Slug == slug {
			return cloneArticle(article), true, nil
		}
	}

	return nil, false, nil
}

func (db *JSONDB) SaveArticle(ctx context.Context, article *models.Article) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Articles[article.ID]; !found {
		return models.ErrNotFound
	}

	for _, existing := range db.Cache.Articles {
		if existing.ID != article.ID && existing.Slug == article.Slug {
			return models.NewValidationError("slug", "is already taken")
		}
	}

	db.Cache.Articles[article.ID] = cloneArticle(article)

	return nil
}

func (db *JSONDB) DeleteArticle(ctx context.Context, articleID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.Cache.Articles, articleID)
	db.Cache.ArticleOrder = funk.FilterString(db.Cache.ArticleOrder, func(id string) bool {
		return id != articleID
	})
	delete(db.Cache.ArticleComments, articleID)

	for _, usr := range db.Cache.Users {
		usr.Favorites = funk.FilterString(usr.Favorites, func(id string) bool {
			return id != articleID
		})
	}

	return nil
}

func matchesFilter(article *models.Article, filter models.ArticleFilter) bool {
	if filter.Tag != "" && !funk.ContainsString(article.TagList, filter.Tag) {
		return false
	}
	if filter.AuthorID != "" && article.AuthorID != filter.AuthorID {
		return false
	}
	if filter.AuthorIDs != nil && !funk.ContainsString(filter.AuthorIDs, article.AuthorID) {
		return false
	}
	if filter.IDs != nil && !funk.ContainsString(filter.IDs, article.ID) {
		return false
	}

	return true
}

func (db *JSONDB) ListArticles(
	ctx context.Context,
	filter models.ArticleFilter,
) ([]*models.Article, int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	matched := []*models.Article{}
	for _, articleID := range db.Cache.ArticleOrder {
		article := db.Cache.Articles[articleID]
		if matchesFilter(article, filter) {
			matched = append(matched, article)
		}
	}

	// Stable sort keeps insertion order among equal timestamps.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	result := make([]*models.Article, 0, len(matched))
	for _, article := range matched {
		result = append(result, cloneArticle(article))
	}

	return result, total, nil
}

func (db *JSONDB) DistinctTags(ctx context.Context) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	tags := []string{}
	for _, article := range db.Cache.Articles {
		tags = append(tags, article.TagList...)
	}
	tags = funk.UniqString(tags)
	sort.Strings(tags)

	return tags, nil
}

func (db *JSONDB) CreateComment(ctx context.Context, comment *models.Comment) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Articles[comment.ArticleID]; !found {
		return models.ErrNotFound
	}

	db.Cache.Comments[comment.ID] = cloneComment(comment)
	db.Cache.ArticleComments[comment.ArticleID] = append(
		db.Cache.ArticleComments[comment.ArticleID],
		comment.ID,
	)

	return nil
}

func (db *JSONDB) FindCommentByID(ctx context.Context, commentID string) (*models.Comment, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	comment, found := db.Cache.Comments[commentID]
	if !found {
		return nil, false, nil
	}

	return cloneComment(comment), true, nil
}

func (db *JSONDB) DeleteComment(ctx context.Context, commentID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	comment, found := db.Cache.Comments[commentID]
	if !found {
		return nil
	}

	delete(db.Cache.Comments, commentID)
	db.Cache.ArticleComments[comment.ArticleID] = funk.FilterString(
		db.Cache.ArticleComments[comment.ArticleID],
		func(id string) bool {
			return id != commentID
		},
	)

	return nil
}

func (db *JSONDB) FindCommentsByArticle(
	ctx context.Context,
	articleID string,
) ([]*models.Comment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := []*models.Comment{}
	for _, commentID := range db.Cache.ArticleComments[articleID] {
		if comment, found := db.Cache.Comments[commentID]; found {
			result = append(result, cloneComment(comment))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (db *JSONDB) DeleteCommentsByArticle(ctx context.Context, articleID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, commentID := range db.Cache.ArticleComments[articleID] {
		delete(db.Cache.Comments, commentID)
	}
	db.Cache.ArticleComments[articleID] = []string{}

	return nil
}
