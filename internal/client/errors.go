package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-success response from the IdeaForge API. Its message is the
// generic "API error: <code> <status text>"; Detail carries whatever the
// backend put in the body, if anything.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("API error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsServerError returns true if the error is any 5xx response.
func IsServerError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode >= 500
	}
	return false
}
