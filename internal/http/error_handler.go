package http

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "s3bridge/pkg/errors"

	"github.com/labstack/echo/v4"
)

// CustomHTTPErrorHandler handles all errors returned by handlers and middleware.
// It maps the broker error taxonomy to HTTP status codes so clients can tell
// configuration errors (fix the registration) from transient upstream errors
// (retry) from authorization errors. Internal details are never exposed.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		message = fmt.Sprintf("%v", httpErr.Message)
	} else {
		switch {
		case errors.Is(err, apperrors.ErrInvalidAPIKey):
			code = http.StatusUnauthorized
			message = "Invalid API key"
		case errors.Is(err, apperrors.ErrUnknownService):
			code = http.StatusBadRequest
			message = "Unknown service"
		case errors.Is(err, apperrors.ErrBucketNotAuthorized):
			code = http.StatusForbidden
			message = "Bucket not authorized"
		case errors.Is(err, apperrors.ErrBadRequest):
			code = http.StatusBadRequest
			message = "Bad request"
		case errors.Is(err, apperrors.ErrExpired):
			code = http.StatusGone
			message = "Credentials expired"
		case errors.Is(err, apperrors.ErrUpstreamFailure):
			code = http.StatusBadGateway
			message = "Credential authority failure"
		}

		// Use the AppError message for client errors; it names the
		// offending service or bucket without leaking internals.
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			if code < 500 {
				message = appErr.Message
			}
		}
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = "unknown"
	}

	if code >= 500 && code != http.StatusBadGateway {
		c.Logger().Error("internal_server_error",
			"request_id", requestID,
			"status", code,
			"error", err.Error())
		message = "Internal server error"
	} else {
		c.Logger().Warn("request_denied",
			"request_id", requestID,
			"status", code,
			"error", err.Error())
	}

	if err := c.JSON(code, map[string]interface{}{
		"error":      message,
		"error_kind": apperrors.Kind(err),
		"request_id": requestID,
	}); err != nil {
		c.Logger().Error(err)
	}
}
