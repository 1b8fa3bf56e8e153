// Package directory implements the user directory: lookups, the follow
// graph and the favorites set. Favorite transitions deliberately do not
// touch the article's derived count; callers run the article store's
// recompute afterwards so the two stores stay decoupled.
package directory

import (
	"context"
	"fmt"
	"time"

	"conduit/internal/credential"
	"conduit/internal/models"
)

type userStore interface {
	FindUserByID(ctx context.Context, userID string) (*models.User, bool, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, bool, error)
	SaveUser(ctx context.Context, usr *models.User) error
	AddFollow(ctx context.Context, userID, targetID string) error
	RemoveFollow(ctx context.Context, userID, targetID string) error
	AddFavorite(ctx context.Context, userID, articleID string) error
	RemoveFavorite(ctx context.Context, userID, articleID string) error
}

// Directory exposes user lookups and relation mutations.
type Directory struct {
	db userStore
}

// New creates a Directory over the given user store.
func New(db userStore) *Directory {
	return &Directory{db: db}
}

// FindByID looks a user up by identity. Absence is a normal outcome.
func (d *Directory) FindByID(ctx context.Context, userID string) (*models.User, bool, error) {
	return d.db.FindUserByID(ctx, userID)
}

// FindByUsername looks a user up by unique username.
func (d *Directory) FindByUsername(ctx context.Context, username string) (*models.User, bool, error) {
	return d.db.FindUserByUsername(ctx, username)
}

// Follow adds the target to the user's following set. Repeated calls
// are no-ops. Following oneself is not prevented here; the stored
// relation model never enforced it.
func (d *Directory) Follow(ctx context.Context, userID, targetID string) error {
	_, found, err := d.db.FindUserByID(ctx, targetID)
	if err != nil {
		return err
	}
	if !found {
		return models.ErrNotFound
	}

	return d.db.AddFollow(ctx, userID, targetID)
}

// Unfollow removes the target from the user's following set. Removing
// an absent relation is a no-op.
func (d *Directory) Unfollow(ctx context.Context, userID, targetID string) error {
	return d.db.RemoveFollow(ctx, userID, targetID)
}

// IsFollowing reports whether userID follows targetID.
func (d *Directory) IsFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	usr, found, err := d.db.FindUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	return usr.IsFollowing(targetID), nil
}

// Favorite adds the article to the user's favorites set, idempotently.
func (d *Directory) Favorite(ctx context.Context, userID, articleID string) error {
	return d.db.AddFavorite(ctx, userID, articleID)
}

// Unfavorite removes the article from the user's favorites set.
func (d *Directory) Unfavorite(ctx context.Context, userID, articleID string) error {
	return d.db.RemoveFavorite(ctx, userID, articleID)
}

// IsFavorite reports whether userID has favorited articleID.
func (d *Directory) IsFavorite(ctx context.Context, userID, articleID string) (bool, error) {
	usr, found, err := d.db.FindUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	return usr.IsFavorite(articleID), nil
}

// UpdateProfile applies the fields present in the partial input. Nil
// fields are left untouched; present fields, including empty strings,
// overwrite. A present password is re-hashed.
func (d *Directory) UpdateProfile(
	ctx context.Context,
	userID string,
	fields models.UpdateUserFields,
) (*models.User, error) {
	usr, found, err := d.db.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrNotFound
	}

	if fields.Username != nil {
		usr.Username = *fields.Username
	}
	if fields.Email != nil {
		usr.Email = *fields.Email
	}
	if fields.Bio != nil {
		usr.Bio = *fields.Bio
	}
	if fields.Image != nil {
		usr.Image = *fields.Image
	}
	if fields.Password != nil {
		passwordHash, err := credential.HashPassword(*fields.Password)
		if err != nil {
			return nil, fmt.Errorf("error while hashing the password: %w", err)
		}
		usr.PasswordHash = passwordHash
	}

	usr.UpdatedAt = time.Now().UTC()

	if err := d.db.SaveUser(ctx, usr); err != nil {
		return nil, err
	}

	return usr, nil
}
