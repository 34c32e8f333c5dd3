package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials indicates a wrong email/password or PIN.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account is locked after repeated failed
	// PIN attempts. Distinct from ErrInvalidCredentials so the UI can offer
	// a different remedy than "try again".
	ErrAccountLocked = errors.New("account locked")
	// ErrUnauthorized indicates the token was rejected outright.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionExpired indicates the session token is past its lifetime.
	ErrSessionExpired = errors.New("session expired")
)

// ServerError is a backend-reported failure that doesn't map onto one of the
// sentinel errors above.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (status %d)", e.Status)
	}
	return fmt.Sprintf("server error (status %d): %s", e.Status, e.Message)
}

// IsAuthRevoked reports whether err means the session is no longer valid
// server-side. The session manager clears local session state for these;
// every other failure is treated as transient and leaves the session alone.
func IsAuthRevoked(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrSessionExpired)
}

// wire error codes shared with the backend (and stubserver).
const (
	codeInvalidCredentials = "invalid_credentials"
	codeAccountLocked      = "account_locked"
	codeUnauthorized       = "unauthorized"
	codeSessionExpired     = "session_expired"
)

// errorFromCode maps a backend error code to the taxonomy. Unknown codes
// fall through to a ServerError carrying the raw message.
func errorFromCode(status int, code, message string) error {
	switch code {
	case codeInvalidCredentials:
		return ErrInvalidCredentials
	case codeAccountLocked:
		return ErrAccountLocked
	case codeUnauthorized:
		return ErrUnauthorized
	case codeSessionExpired:
		return ErrSessionExpired
	default:
		return &ServerError{Status: status, Message: message}
	}
}
