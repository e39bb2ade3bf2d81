package catalog

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the catalog rejects the admin token.
var ErrUnauthorized = errors.New("unauthorized catalog access")

// ServerError reports a server-side catalog failure that persisted after
// retries.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog %s: server error (status %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("catalog %s: server error (status %d): %s", e.Op, e.Status, e.Message)
}

// IsServerError returns true if err is a ServerError.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// StatusError reports an unexpected non-2xx response that is neither an
// authorization nor a server failure.
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog %s: unexpected status %d: %s", e.Op, e.Status, e.Message)
}

// IsUnauthorized returns true if err wraps ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
