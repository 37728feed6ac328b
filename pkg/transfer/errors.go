package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectFailed is returned when the transfer connection could not be opened.
	ErrConnectFailed = errors.New("connect failed")

	// ErrStreamError is returned when the connection or the sink failed mid-transfer.
	ErrStreamError = errors.New("stream error")

	// ErrSessionFinished is returned when Run is called on a session that already ended.
	ErrSessionFinished = errors.New("session already finished")
)

// Error is the failure of one transfer session. It unwraps to its Kind
// (ErrConnectFailed or ErrStreamError) and to the underlying cause.
type Error struct {
	Kind     error
	Addr     string
	Received uint64
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transfer from %s: %v after %d bytes: %v", e.Addr, e.Kind, e.Received, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
