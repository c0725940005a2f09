// internal/session/errors.go
package session

import (
	"errors"
	"fmt"
)

// ErrInvalidResponse is wrapped by every structural check on a response body.
var ErrInvalidResponse = errors.New("invalid session API response")

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	// Status is the status line text, used when the body is empty.
	Status string
	Body   string
}

func (e *HTTPError) Error() string {
	detail := e.Body
	if detail == "" {
		detail = e.Status
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, detail)
}

func invalid(field string) error {
	return fmt.Errorf("%w: invalid %s", ErrInvalidResponse, field)
}
