package httpx

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/playtube-io/playtube/internal/logging"
)

// ErrorHandler converts any error escaping a handler into the envelope.
// Internal detail never reaches the client; 5xx bodies carry a generic
// message and the real error goes to the log.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"
	var errs any

	var apiErr *Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Status
		message = apiErr.Message
		errs = apiErr.Errs
	case errors.As(err, &httpErr):
		status = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("request failed",
			"status", status, "error", err)
		message = "internal server error"
		errs = nil
	}

	resp := Envelope{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     errs,
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, resp)
}
