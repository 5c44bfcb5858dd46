package hackchat

import (
	"errors"
	"fmt"
)

var (
	ErrClosed        = errors.New("hackchat: session closed")
	ErrNotJoined     = errors.New("hackchat: channel not joined")
	ErrManagerClosed = errors.New("hackchat: manager closed")
)

// ConnectError reports a failed attempt to establish a session. The
// attempt is not retried.
type ConnectError struct {
	Channel string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("hackchat: connect %s: %v", e.Channel, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
