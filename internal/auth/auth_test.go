package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"conduit/internal/models"
)

type stubVerifier struct {
	userID string
}

func (v *stubVerifier) VerifyToken(tokenString string) (string, error) {
	if tokenString == "valid-token" {
		return v.userID, nil
	}

	return "", models.ErrUnauthorized
}

func identityEcho() (http.Handler, *string) {
	var seen string
	handler := http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		userID, _ := UserIDFromContext(request.Context())
		seen = userID
		response.WriteHeader(http.StatusOK)
	})

	return handler, &seen
}

func TestRequired(t *testing.T) {
	theGuard := New(&stubVerifier{userID: "user-1"})

	testCases := []struct {
		name           string
		header         string
		expectedStatus int
		expectedUserID string
	}{
		{
			name:           "token scheme",
			header:         "Token valid-token",
			expectedStatus: http.StatusOK,
			expectedUserID: "user-1",
		},
		{
			name:           "bearer scheme",
			header:         "Bearer valid-token",
			expectedStatus: http.StatusOK,
			expectedUserID: "user-1",
		},
		{
			name:           "missing header",
			header:         "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			header:         "Token forged-token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unrecognized scheme",
			header:         "Basic valid-token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bare token without scheme",
			header:         "valid-token",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler, seen := identityEcho()

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.header != "" {
				request.Header.Set("Authorization", testCase.header)
			}
			recorder := httptest.NewRecorder()

			theGuard.Required(handler).ServeHTTP(recorder, request)

			assert.Equal(t, testCase.expectedStatus, recorder.Code)
			if testCase.expectedStatus == http.StatusOK {
				assert.Equal(t, testCase.expectedUserID, *seen)
			}
		})
	}
}

func TestOptional(t *testing.T) {
	theGuard := New(&stubVerifier{userID: "user-1"})

	testCases := []struct {
		name           string
		header         string
		expectedUserID string
	}{
		{
			name:           "valid token resolves identity",
			header:         "Token valid-token",
			expectedUserID: "user-1",
		},
		{
			name:   "missing header proceeds anonymously",
			header: "",
		},
		{
			name:   "invalid token proceeds anonymously",
			header: "Token forged-token",
		},
		{
			name:   "unrecognized scheme proceeds anonymously",
			header: "Basic valid-token",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler, seen := identityEcho()

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.header != "" {
				request.Header.Set("Authorization", testCase.header)
			}
			recorder := httptest.NewRecorder()

			theGuard.Optional(handler).ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, testCase.expectedUserID, *seen)
		})
	}
}
