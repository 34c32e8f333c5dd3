package session

import "errors"

var (
	// ErrNotActivated indicates an operation that requires a bound device
	// was attempted before activation.
	ErrNotActivated = errors.New("device not activated")
	// ErrAlreadyActivated indicates activation was attempted on a device
	// that already holds a device token.
	ErrAlreadyActivated = errors.New("device already activated")
	// ErrNotAuthenticated indicates an operation that requires a live
	// session was attempted without one.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAlreadyAuthenticated indicates a PIN login was attempted while a
	// session is still live. The current session must end first.
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	// ErrNoLocations indicates the backend reported an employee with no
	// accessible locations. Assigning such an account a default role would
	// silently grant permissions, so login fails instead.
	ErrNoLocations = errors.New("employee has no accessible locations")
	// ErrClosed indicates the manager has been shut down.
	ErrClosed = errors.New("session manager closed")
)
