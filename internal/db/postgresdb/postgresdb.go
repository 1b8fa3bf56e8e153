// Package postgresdb provides a PostgreSQL-backed implementation of the
// storage interface. The document model of the core is projected onto
// relational tables: the follow graph and favorites sets become join
// tables, the per-article comment list becomes an ordered comments table.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"conduit/internal/models"
)

// PostgresDB is the PostgreSQL-backed storage. All operations run
// single statements; the services never need cross-entity transactions.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

// New establishes a connection to the PostgreSQL database, runs schema
// migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
) (*PostgresDB, error) {
	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("error while pinging the database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil, fmt.Errorf("error while `goose.Up()` calling: %w", err)
	}

	return result, nil
}

// Ping verifies the database connection.
func (db *PostgresDB) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(pingCtx)
}

// Close closes the underlying database connection.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

// uniquenessError converts a PostgreSQL unique violation into the
// field-level ValidationError the services expect. Any other error is
// returned unchanged.
func uniquenessError(err error) error {
	var pgError *pgconn.PgError
	if !errors.As(err, &pgError) || pgError.Code != "23505" {
		return err
	}

	switch {
	case strings.Contains(pgError.ConstraintName, "username"):
		return models.NewValidationError("username", "is already taken")
	case strings.Contains(pgError.ConstraintName, "email"):
		return models.NewValidationError("email", "is already taken")
	case strings.Contains(pgError.ConstraintName, "slug"):
		return models.NewValidationError("slug", "is already taken")
	}

	return err
}

// CreateUser inserts a new user record.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *models.User) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO users (id, username, email, password_hash, bio, image, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
		usr.ID,
		usr.Username,
		usr.Email,
		usr.PasswordHash,
		usr.Bio,
		usr.Image,
		usr.CreatedAt,
		usr.UpdatedAt,
	)
	if err != nil {
		return uniquenessError(err)
	}

	return nil
}

func (db *PostgresDB) loadUserSets(ctx context.Context, usr *models.User) error {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT target_id FROM follows WHERE user_id = $1 ORDER BY position`,
		usr.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	usr.Following = []string{}
	for rows.Next() {
		var targetID string
		if err := rows.Scan(&targetID); err != nil {
			return err
		}
		usr.Following = append(usr.Following, targetID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	favoriteRows, err := db.database.QueryContext(
		ctx,
		`SELECT article_id FROM favorites WHERE user_id = $1 ORDER BY position`,
		usr.ID,
	)
	if err != nil {
		return err
	}
	defer favoriteRows.Close()

	usr.Favorites = []string{}
	for favoriteRows.Next() {
		var articleID string
		if err := favoriteRows.Scan(&articleID); err != nil {
			return err
		}
		usr.Favorites = append(usr.Favorites, articleID)
	}

	return favoriteRows.Err()
}

func (db *PostgresDB) findUser(ctx context.Context, condition string, arg any) (*models.User, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, username, email, password_hash, bio, image, created_at, updated_at
				FROM users
				WHERE `+condition,
		arg,
	)

	usr := &models.User{}
	err := row.Scan(
		&usr.ID,
		&usr.Username,
		&usr.Email,
		&usr.PasswordHash,
		&usr.Bio,
		&usr.Image,
		&usr.CreatedAt,
		&usr.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := db.loadUserSets(ctx, usr); err != nil {
		return nil, false, err
	}

	return usr, true, nil
}

// FindUserByID fetches a user with their follow and favorite sets.
func (db *PostgresDB) FindUserByID(ctx context.Context, userID string) (*models.User, bool, error) {
	return db.findUser(ctx, `id = $1`, userID)
}

// FindUserByUsername fetches a user by unique username.
func (db *PostgresDB) FindUserByUsername(ctx context.Context, username string) (*models.User, bool, error) {
	return db.findUser(ctx, `username = $1`, username)
}

// FindUserByEmail fetches a user by unique email.
func (db *PostgresDB) FindUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	return db.findUser(ctx, `email = $1`, email)
}

// SaveUser updates the profile fields of an existing user. Follow and
// favorite sets are maintained through their dedicated operations.
func (db *PostgresDB) SaveUser(ctx context.Context, usr *models.User) error {
	result, err := db.database.ExecContext(
		ctx,
		`
			UPDATE users
				SET username = $2, email = $3, password_hash = $4, bio = $5, image = $6, updated_at = $7
				WHERE id = $1
		`,
		usr.ID,
		usr.Username,
		usr.Email,
		usr.PasswordHash,
		usr.Bio,
		usr.Image,
		usr.UpdatedAt,
	)
	if err != nil {
		return uniquenessError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// AddFollow adds the target to the user's following set, ignoring duplicates.
func (db *PostgresDB) AddFollow(ctx context.Context, userID, targetID string) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO follows (user_id, target_id)
				VALUES ($1, $2)
				ON CONFLICT (user_id, target_id) DO NOTHING
		`,
		userID,
		targetID,
	)

	return err
}

// RemoveFollow removes the target from the user's following set.
func (db *PostgresDB) RemoveFollow(ctx context.Context, userID, targetID string) error {
	_, err := db.database.ExecContext(
		ctx,
		`DELETE FROM follows WHERE user_id = $1 AND target_id = $2`,
		userID,
		targetID,
	)

	return err
}

// AddFavorite adds the article to the user's favorites set, ignoring duplicates.
func (db *PostgresDB) AddFavorite(ctx context.Context, userID, articleID string) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO favorites (user_id, article_id)
				VALUES ($1, $2)
				ON CONFLICT (user_id, article_id) DO NOTHING
		`,
		userID,
		articleID,
	)

	return err
}

// RemoveFavorite removes the article from the user's favorites set.
func (db *PostgresDB) RemoveFavorite(ctx context.Context, userID, articleID string) error {
	_, err := db.database.ExecContext(
		ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND article_id = $2`,
		userID,
		articleID,
	)

	return err
}

// CountFavorites returns the number of users favoriting the article.
func (db *PostgresDB) CountFavorites(ctx context.Context, articleID string) (int, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT count(*) FROM favorites WHERE article_id = $1`,
		articleID,
	)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (db *PostgresDB) saveTags(ctx context.Context, articleID string, tagList []string) error {
	_, err := db.database.ExecContext(
		ctx,
		`DELETE FROM article_tags WHERE article_id = $1`,
		articleID,
	)
	if err != nil {
		return err
	}

	for position, tag := range tagList {
		_, err := db.database.ExecContext(
			ctx,
			`INSERT INTO article_tags (article_id, tag, position) VALUES ($1, $2, $3)`,
			articleID,
			tag,
			position,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// CreateArticle inserts a new article with its tag list.
func (db *PostgresDB) CreateArticle(ctx context.Context, article *models.Article) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO articles (id, slug, title, description, body, author_id, favorites_count, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
		article.ID,
		article.Slug,
		article.Title,
		article.Description,
		article.Body,
		article.AuthorID,
		article.FavoritesCount,
		article.CreatedAt,
		article.UpdatedAt,
	)
	if err != nil {
		return uniquenessError(err)
	}

	return db.saveTags(ctx, article.ID, article.TagList)
}

func (db *PostgresDB) loadTags(ctx context.Context, articleID string) ([]string, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT tag FROM article_tags WHERE article_id = $1 ORDER BY position`,
		articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}

const articleColumns = `id, slug, title, description, body, author_id, favorites_count, created_at, updated_at`

func scanArticle(row interface{ Scan(...any) error }) (*models.Article, error) {
	article := &models.Article{}
	err := row.Scan(
		&article.ID,
		&article.Slug,
		&article.Title,
		&article.Description,
		&article.Body,
		&article.AuthorID,
		&article.FavoritesCount,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return article, nil
}

func (db *PostgresDB) findArticle(ctx context.Context, condition string, arg any) (*models.Article, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT `+articleColumns+` FROM articles WHERE `+condition,
		arg,
	)

	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	article.TagList, err = db.loadTags(ctx, article.ID)
	if err != nil {
		return nil, false, err
	}

	return article, true, nil
}

// FindArticleByID fetches an article by identity.
func (db *PostgresDB) FindArticleByID(ctx context.Context, articleID string) (*models.Article, bool, error) {
	return db.findArticle(ctx, `id = $1`, articleID)
}

// FindArticleBySlug fetches an article by unique slug.
func (db *PostgresDB) FindArticleBySlug(ctx context.Context, slug string) (*models.Article, bool, error) {
	return db.findArticle(ctx, `slug = $1`, slug)
}

// SaveArticle rewrites an existing article row and its tag list.
func (db *PostgresDB) SaveArticle(ctx context.Context, article *models.Article) error {
	result, err := db.database.ExecContext(
		ctx,
		`
			UPDATE articles
				SET slug = $2, title = $3, description = $4, body = $5, favorites_count = $6, updated_at = $7
				WHERE id = $1
		`,
		article.ID,
		article.Slug,
		article.Title,
		article.Description,
		article.Body,
		article.FavoritesCount,
		article.UpdatedAt,
	)
	if err != nil {
		return uniquenessError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return db.saveTags(ctx, article.ID, article.TagList)
}

// DeleteArticle removes the article together with its tag rows and
// the favorites referencing it.
func (db *PostgresDB) DeleteArticle(ctx context.Context, articleID string) error {
	_, err := db.database.ExecContext(
		ctx,
		`DELETE FROM articles WHERE id = $1`,
		articleID,
	)

	return err
}

func buildListQuery(filter models.ArticleFilter) (string, []any) {
	conditions := []string{}
	args := []any{}

	addCondition := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Tag != "" {
		addCondition(`id IN (SELECT article_id FROM article_tags WHERE tag = $%d)`, filter.Tag)
	}
	if filter.AuthorID != "" {
		addCondition(`author_id = $%d`, filter.AuthorID)
	}
	if filter.AuthorIDs != nil {
		addCondition(`author_id = ANY($%d)`, filter.AuthorIDs)
	}
	if filter.IDs != nil {
		addCondition(`id = ANY($%d)`, filter.IDs)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = ` WHERE ` + strings.Join(conditions, ` AND `)
	}

	return whereClause, args
}

// ListArticles returns the filtered page ordered by creation time
// descending, ties broken by insertion order, plus the total match count.
func (db *PostgresDB) ListArticles(
	ctx context.Context,
	filter models.ArticleFilter,
) ([]*models.Article, int, error) {
	whereClause, args := buildListQuery(filter)

	row := db.database.QueryRowContext(
		ctx,
		`SELECT count(*) FROM articles`+whereClause,
		args...,
	)
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + articleColumns + ` FROM articles` + whereClause +
		` ORDER BY created_at DESC, position ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := db.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []*models.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, article := range result {
		article.TagList, err = db.loadTags(ctx, article.ID)
		if err != nil {
			return nil, 0, err
		}
	}

	return result, total, nil
}

// DistinctTags returns the union of all tag lists.
func (db *PostgresDB) DistinctTags(ctx context.Context) ([]string, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT DISTINCT tag FROM article_tags ORDER BY tag`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}

// CreateComment appends a comment to the article's comment list.
func (db *PostgresDB) CreateComment(ctx context.Context, comment *models.Comment) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO comments (id, article_id, author_id, body, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
		`,
		comment.ID,
		comment.ArticleID,
		comment.AuthorID,
		comment.Body,
		comment.CreatedAt,
		comment.UpdatedAt,
	)

	return err
}

// FindCommentByID fetches a single comment.
func (db *PostgresDB) FindCommentByID(ctx context.Context, commentID string) (*models.Comment, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, article_id, author_id, body, created_at, updated_at
				FROM comments
				WHERE id = $1
		`,
		commentID,
	)

	comment := &models.Comment{}
	err := row.Scan(
		&comment.ID,
		&comment.ArticleID,
		&comment.AuthorID,
		&comment.Body,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return comment, true, nil
}

// DeleteComment removes a comment from the store and thereby from the
// owning article's list.
func (db *PostgresDB) DeleteComment(ctx context.Context, commentID string) error {
	_, err := db.database.ExecContext(
		ctx,
		`DELETE FROM comments WHERE id = $1`,
		commentID,
	)

	return err
}

// FindCommentsByArticle returns the article's comments newest first.
func (db *PostgresDB) FindCommentsByArticle(
	ctx context.Context,
	articleID string,
) ([]*models.Comment, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, article_id, author_id, body, created_at, updated_at
				FROM comments
				WHERE article_id = $1
				ORDER BY created_at DESC, position ASC
		`,
		articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*models.Comment{}
	for rows.Next() {
		comment := &models.Comment{}
		err := rows.Scan(
			&comment.ID,
			&comment.ArticleID,
			&comment.AuthorID,
			&comment.Body,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, comment)
	}

	return result, rows.Err()
}

// DeleteCommentsByArticle removes every comment owned by the article.
func (db *PostgresDB) DeleteCommentsByArticle(ctx context.Context, articleID string) error {
	_, err := db.database.ExecContext(
		ctx,
		`DELETE FROM comments WHERE article_id = $1`,
		articleID,
	)

	return err
}
