package transport

import (
	"errors"
	"fmt"
)

// Server state errors.
var (
	// ErrNotRunning indicates the server has not been started.
	ErrNotRunning = errors.New("server is not running")

	// ErrAlreadyRunning indicates the server is already started.
	ErrAlreadyRunning = errors.New("server is already running")
)

// BindError reports a failure to bind the listen socket. Start leaves no
// partial server state behind when it returns one.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }
