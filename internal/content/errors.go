package content

import (
	"errors"
	"fmt"
)

// ErrNetwork indicates the request never produced a usable response
// (connection refused, timeout, DNS failure).
var ErrNetwork = errors.New("content: network failure")

// ErrMalformed indicates the server responded but the body was missing
// required fields.
var ErrMalformed = errors.New("content: malformed response")

// StatusError reports a non-2xx response from the content server.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("content: server returned status %d", e.Code)
}
