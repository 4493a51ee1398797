package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"closetapi/apperrors"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const codeInternal = "INTERNAL"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Raw     *string        `json:"raw,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorResponse converts err into a status and payload. Model text is
// included only for failures that came from decoding or validating it.
func NewErrorResponse(err error) (int, ErrorResponse) {
	if appErr, ok := apperrors.As(err); ok {
		response := ErrorResponse{
			Error:   appErr.Message,
			Code:    string(appErr.Kind),
			Details: appErr.Details,
		}
		if appErr.Kind.CarriesRaw() {
			raw := appErr.Raw
			response.Raw = &raw
		}
		return appErr.Status, response
	}

	if he, ok := err.(*echo.HTTPError); ok {
		message := fmt.Sprint(he.Message)
		if he.Code == http.StatusBadRequest {
			return he.Code, ErrorResponse{Error: message, Code: string(apperrors.KindInput)}
		}
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
		if code == "" {
			code = codeInternal
		}
		return he.Code, ErrorResponse{Error: message, Code: code}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: codeInternal}
}

// HTTPErrorHandler writes the error payload and reports server-side failures to sentry.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, response := NewErrorResponse(err)
	if status >= http.StatusInternalServerError {
		captureError(c, err, response.Code)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, response)
	}
	if writeErr != nil {
		log.Ctx(c.Request().Context()).Error().Err(writeErr).Msg("failed to write error response")
	}
}

func captureError(c echo.Context, err error, kind string) {
	hub := sentryecho.GetHubFromContext(c)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("kind", kind)
		scope.SetTag("path", c.Path())
		hub.CaptureException(err)
	})
}
