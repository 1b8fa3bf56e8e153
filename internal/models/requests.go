package models

import (
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validationErrorFrom(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	result := &ValidationError{Fields: map[string]string{}}
	for _, fieldError := range fieldErrors {
		field := strings.ToLower(fieldError.Field())
		switch fieldError.Tag() {
		case "required":
			result.Fields[field] = "can't be blank"
		case "email":
			result.Fields[field] = "is invalid"
		default:
			result.Fields[field] = "is invalid"
		}
	}

	return result
}

// RegisterRequest is the payload of POST /api/users.
type RegisterRequest struct {
	User RegisterUser `json:"user"`
}

// RegisterUser carries the credentials of a new account.
type RegisterUser struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Bind implements render.Binder.
func (p *RegisterRequest) Bind(_ *http.Request) error {
	if err := validate.Struct(p.User); err != nil {
		return validationErrorFrom(err)
	}

	return nil
}

// LoginRequest is the payload of POST /api/users/login.
type LoginRequest struct {
	User LoginUser `json:"user"`
}

// LoginUser carries login credentials. Presence is checked field by
// field so that each blank field gets its own message.
type LoginUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Bind implements render.Binder.
func (p *LoginRequest) Bind(_ *http.Request) error {
	if p.User.Email == "" {
		return NewValidationError("email", "can't be blank")
	}
	if p.User.Password == "" {
		return NewValidationError("password", "can't be blank")
	}

	return nil
}

// UpdateUserRequest is the payload of PUT /api/user. Nil fields are
// left untouched; present fields, including empty strings, overwrite.
type UpdateUserRequest struct {
	User UpdateUserFields `json:"user"`
}

// UpdateUserFields is the partial field set of a user self-update.
type UpdateUserFields struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Bio      *string `json:"bio"`
	Image    *string `json:"image"`
}

// Bind implements render.Binder.
func (p *UpdateUserRequest) Bind(_ *http.Request) error {
	if p.User.Email != nil && *p.User.Email != "" {
		if err := validate.Var(*p.User.Email, "email"); err != nil {
			return NewValidationError("email", "is invalid")
		}
	}

	return nil
}

// CreateArticleRequest is the payload of POST /api/articles.
type CreateArticleRequest struct {
	Article CreateArticleFields `json:"article"`
}

// CreateArticleFields carries the fields of a new article.
type CreateArticleFields struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	TagList     []string `json:"tagList"`
}

// Bind implements render.Binder.
func (p *CreateArticleRequest) Bind(_ *http.Request) error {
	if err := validate.Struct(p.Article); err != nil {
		return validationErrorFrom(err)
	}

	return nil
}

// UpdateArticleRequest is the payload of PUT /api/articles/{slug}.
// Only fields present in the JSON document are applied.
type UpdateArticleRequest struct {
	Article UpdateArticleFields `json:"article"`
}

// UpdateArticleFields is the partial field set of an article update.
type UpdateArticleFields struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Body        *string   `json:"body"`
	TagList     *[]string `json:"tagList"`
}

// Bind implements render.Binder.
func (p *UpdateArticleRequest) Bind(_ *http.Request) error {
	return nil
}

// CreateCommentRequest is the payload of POST /api/articles/{slug}/comments.
type CreateCommentRequest struct {
	Comment CreateCommentFields `json:"comment"`
}

// CreateCommentFields carries the body of a new comment.
type CreateCommentFields struct {
	Body string `json:"body" validate:"required"`
}

// Bind implements render.Binder.
func (p *CreateCommentRequest) Bind(_ *http.Request) error {
	if err := validate.Struct(p.Comment); err != nil {
		return validationErrorFrom(err)
	}

	return nil
}
