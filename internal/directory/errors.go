package directory

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks network-level failures: refused connections, timeouts, cut bodies.
	ErrTransport = errors.New("directory: transport failure")
	// ErrProtocol marks responses that could not be decoded into the expected shape.
	ErrProtocol = errors.New("directory: unexpected response")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("directory: HTTP %s", e.Status)
}

// AsStatusError unwraps err into a *StatusError when it carries one.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
