// Package auth provides the request authorization guard: middleware
// that decodes a bearer credential from the Authorization header into
// a user identity on the request context. The required variant rejects
// requests without a valid credential; the optional variant lets them
// proceed anonymously.
package auth

import (
	"context"
	"net/http"
	"strings"
)

type tokenVerifier interface {
	VerifyToken(tokenString string) (string, error)
}

// Guard resolves request identities from signed tokens.
type Guard struct {
	verifier tokenVerifier
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// New creates a Guard over the given token verifier.
func New(verifier tokenVerifier) *Guard {
	return &Guard{verifier: verifier}
}

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)

	return userID, ok && userID != ""
}

// getTokenString extracts the raw token from the Authorization header.
// Both "Token <jwt>" and "Bearer <jwt>" schemes are accepted; any other
// scheme yields no credential.
func getTokenString(request *http.Request) string {
	header := request.Header.Get("Authorization")

	for _, scheme := range []string{"Token ", "Bearer "} {
		if strings.HasPrefix(header, scheme) {
			return strings.TrimPrefix(header, scheme)
		}
	}

	return ""
}

// Required is an HTTP middleware that rejects the request with 401
// unless a valid, unexpired token is presented.
func (g *Guard) Required(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString := getTokenString(request)
		if tokenString == "" {
			response.WriteHeader(http.StatusUnauthorized)

			return
		}

		userID, err := g.verifier.VerifyToken(tokenString)
		if err != nil {
			response.WriteHeader(http.StatusUnauthorized)

			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// Optional is an HTTP middleware that resolves the identity when a
// valid token is present and proceeds anonymously otherwise, including
// when the token is invalid or expired.
func (g *Guard) Optional(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString := getTokenString(request)
		if tokenString == "" {
			h.ServeHTTP(response, request)

			return
		}

		userID, err := g.verifier.VerifyToken(tokenString)
		if err != nil {
			h.ServeHTTP(response, request)

			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}
