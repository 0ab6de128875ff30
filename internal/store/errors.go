package store

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrCancelled is returned by Run when a newer request of the same kind
// replaced it, or its context ended.
var ErrCancelled = errors.New("request cancelled")

// LoginRedirect is where unauthorized sessions are sent.
const LoginRedirect = "/login"

// ErrorDetail is one user-facing error entry.
type ErrorDetail struct {
	Title  string `json:"title" doc:"Short error title" example:"Invalid AOI"`
	Detail string `json:"detail" doc:"Explanation" example:"The drawn shape crosses itself."`
}

// UnknownError is used when a failure carries no details of its own.
var UnknownError = ErrorDetail{Title: "Error", Detail: "An unknown error has occurred"}

// APIError is a failed request with a status and server supplied details.
// It is also what the HTTP API writes for rejected drafts.
type APIError struct {
	Status int           `json:"status" doc:"HTTP status code"`
	Errors []ErrorDetail `json:"errors" doc:"Error entries"`
}

func (e *APIError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		parts = append(parts, d.Title+": "+d.Detail)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, strings.Join(parts, "; "))
}

// GetStatus returns the HTTP status.
func (e *APIError) GetStatus() int { return e.Status }

// Unauthorized reports whether the status asks the user to log in.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Details extracts the user-facing entries from err, falling back to
// UnknownError.
func Details(err error) []ErrorDetail {
	var apiErr *APIError
	if errors.As(err, &apiErr) && len(apiErr.Errors) > 0 {
		return append([]ErrorDetail(nil), apiErr.Errors...)
	}
	return []ErrorDetail{UnknownError}
}
