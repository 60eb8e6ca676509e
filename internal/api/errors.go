package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failure returned by the marketplace backend. Reason carries
// the backend-provided human-readable explanation when one was present in
// the error envelope.
type APIError struct {
	StatusCode int
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("api: %s (status %d)", e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("api: request failed (status %d)", e.StatusCode)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ReasonOf extracts the backend-provided reason from err, if any.
func ReasonOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return ""
}

// errorEnvelope is the backend failure payload shape.
type errorEnvelope struct {
	Error struct {
		Reason string `json:"reason"`
	} `json:"error"`
}
