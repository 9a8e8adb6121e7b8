package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected    = errors.New("not connected to signaling server")
	ErrUnknownStreamer = errors.New("unknown streamer")
	ErrConnectTimeout  = errors.New("connect attempt timed out")
)

// SessionError wraps a failure with the operation and, when one is
// involved, the streamer it concerned.
type SessionError struct {
	Op         string
	StreamerID int
	Err        error
	Details    string
}

func (e *SessionError) Error() string {
	if e.StreamerID != 0 {
		return fmt.Sprintf("%s (streamer %d): %v", e.Op, e.StreamerID, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func NewPeerError(op string, streamerID int, err error) *SessionError {
	return &SessionError{Op: op, StreamerID: streamerID, Err: err}
}
