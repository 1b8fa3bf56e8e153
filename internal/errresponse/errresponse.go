// Package errresponse maps the core error taxonomy onto HTTP responses.
// Validation failures carry a field-to-message body; not-found,
// unauthorized and forbidden are plain statuses; anything else is an
// internal error whose message is only exposed in development mode.
package errresponse

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"conduit/internal/logger"
	"conduit/internal/models"
)

// Development switches internal error bodies on. The application sets
// it from configuration at startup.
var Development bool

// ErrResponse is the body-bearing error envelope.
type ErrResponse struct {
	HTTPStatusCode int `json:"-"`

	Errors map[string]string `json:"errors"`
}

// Render implements render.Renderer.
func (e *ErrResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)

	return nil
}

// ErrValidation builds the 422 envelope for a ValidationError.
func ErrValidation(validationErr *models.ValidationError) render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusUnprocessableEntity,
		Errors:         validationErr.Fields,
	}
}

// ErrMalformedRequest is rendered when the request body cannot be
// decoded at all.
func ErrMalformedRequest() render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusUnprocessableEntity,
		Errors:         map[string]string{"body": "is invalid"},
	}
}

// Write renders the response matching err. Unrecognized errors are
// treated as internal failures and logged.
func Write(response http.ResponseWriter, request *http.Request, err error) {
	if validationErr, ok := models.AsValidationError(err); ok {
		if renderErr := render.Render(response, request, ErrValidation(validationErr)); renderErr != nil {
			logger.Log.Debugln("Error rendering the validation response: ", zap.Error(renderErr))
		}

		return
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		response.WriteHeader(http.StatusNotFound)

	case errors.Is(err, models.ErrUnauthorized):
		response.WriteHeader(http.StatusUnauthorized)

	case errors.Is(err, models.ErrForbidden):
		response.WriteHeader(http.StatusForbidden)

	default:
		logger.Log.Errorln("Internal error while handling the request: ", zap.Error(err))

		if Development {
			errBody := &ErrResponse{
				HTTPStatusCode: http.StatusInternalServerError,
				Errors:         map[string]string{"internal": err.Error()},
			}
			if renderErr := render.Render(response, request, errBody); renderErr != nil {
				logger.Log.Debugln("Error rendering the internal error response: ", zap.Error(renderErr))
			}

			return
		}

		response.WriteHeader(http.StatusInternalServerError)
	}
}
