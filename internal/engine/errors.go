package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOutput is returned when the engine answers 200 but reports zero
	// output artifacts. The transport succeeded; the conversion did not.
	ErrNoOutput = errors.New("conversion produced no usable output")

	// ErrMalformedResponse is returned when the engine's body is not the
	// JSON shape the client expects.
	ErrMalformedResponse = errors.New("malformed engine response")

	// ErrTimeout is returned when the conversion call exceeds its deadline.
	ErrTimeout = errors.New("engine request timeout")
)

// RemoteError carries the engine's status code and verbatim message body so
// callers can surface them for diagnostics.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("engine rejected request: status %d", e.Status)
	}
	return fmt.Sprintf("engine rejected request: status %d: %s", e.Status, e.Message)
}
