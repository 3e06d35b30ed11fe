package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrNotActive is returned by operations that need a running session.
	ErrNotActive = errors.New("detection is not active")

	// ErrInvalidOptions wraps validation failures of Start options and
	// sensitivity updates.
	ErrInvalidOptions = errors.New("invalid detection options")
)

// AlreadyActiveError is returned by Start while a session is running.
type AlreadyActiveError struct {
	SessionID string
}

func (e *AlreadyActiveError) Error() string {
	return fmt.Sprintf("detection already active (session %s)", e.SessionID)
}
