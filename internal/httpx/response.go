package httpx

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the uniform response body every route returns.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
	Errors     any    `json:"errors,omitempty"`
}

func OK(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// Error is a client-visible failure with an HTTP status attached.
type Error struct {
	Status  int
	Message string
	Errs    any
}

func (e *Error) Error() string { return e.Message }

func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func ValidationError(errs any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: "validation failed", Errs: errs}
}
