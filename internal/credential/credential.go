// Package credential owns account registration, password verification
// and the issuance and verification of signed bearer tokens.
package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"conduit/internal/models"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
}

// Claims represents the token claims: the standard registered set plus
// the user identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// Service issues credentials and registers accounts. Tokens are signed
// HS256 with a process-wide secret and expire after a fixed window.
type Service struct {
	db               userKeeper
	signingSecretKey []byte
	tokenTTL         time.Duration
}

// New creates a Service over the given user store.
func New(db userKeeper, signingSecretKey []byte, tokenTTL time.Duration) *Service {
	return &Service{
		db:               db,
		signingSecretKey: signingSecretKey,
		tokenTTL:         tokenTTL,
	}
}

// Register creates a new account with a hashed password. Username and
// email uniqueness violations come back from the store as a
// ValidationError; a blank password is rejected here.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if password == "" {
		return nil, models.NewValidationError("password", "can't be blank")
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error while hashing the password: %w", err)
	}

	now := time.Now().UTC()
	usr := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Following:    []string{},
		Favorites:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.CreateUser(ctx, usr); err != nil {
		return nil, err
	}

	return usr, nil
}

// Authenticate resolves an email/password pair to the account. Both an
// unknown email and a wrong password produce the same ValidationError
// so the response does not reveal which part failed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	usr, found, err := s.db.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !found || !VerifyPassword(usr.PasswordHash, password) {
		return nil, models.NewValidationError("email or password", "is invalid")
	}

	return usr, nil
}

// IssueToken signs a token carrying the user identity, valid for the
// configured window.
func (s *Service) IssueToken(usr *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		UserID: usr.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifyToken checks signature and expiry and returns the encoded user
// identity. Any failure maps to ErrUnauthorized.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", models.ErrUnauthorized
	}

	return claims.UserID, nil
}
