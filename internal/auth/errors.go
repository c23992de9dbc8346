package auth

import "errors"

var (
	// ErrConflict is returned by Register when the username is taken.
	ErrConflict = errors.New("username already registered")
	// ErrInvalidCredentials is returned by Login for an unknown user and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoSession is returned by Authenticate when the token has no live session.
	ErrNoSession = errors.New("no active session")
)

// ValidationError rejects malformed, missing or undersized input before any
// store access. Message is suitable for returning to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
