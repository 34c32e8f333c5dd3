// Package transport defines the contract the session manager uses to reach
// the backend authentication API, plus the JSON/HTTP client implementing it.
package transport

import (
	"context"
	"time"

	"github.com/opencounter/posauth/permission"
)

// Employee identifies the authenticated employee for the current session.
type Employee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location is one business location the employee can work from. Role is the
// employee's role at that location.
type Location struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Role permission.Role `json:"role"`
}

// ActivateResult is the outcome of binding a device to a business.
type ActivateResult struct {
	DeviceToken string `json:"device_token"`
}

// LoginResult is the outcome of a successful PIN login.
type LoginResult struct {
	SessionToken        string     `json:"session_token"`
	Employee            Employee   `json:"employee"`
	CurrentLocation     *Location  `json:"current_location,omitempty"`
	AccessibleLocations []Location `json:"accessible_locations"`
	ExpiresAt           time.Time  `json:"expires_at"`
}

// RefreshResult carries a renewed session token and its expiry.
type RefreshResult struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RemoteAuth is the remote authentication API as seen by the session
// manager. Implementations must translate backend failures into the error
// taxonomy in errors.go so callers can triage with errors.Is.
type RemoteAuth interface {
	// ActivateDevice binds this terminal to a business using owner or
	// manager credentials and returns the long-lived device token.
	ActivateDevice(ctx context.Context, email, password, deviceName string) (*ActivateResult, error)

	// LoginWithPin authenticates an employee on an activated device. The
	// device token scopes the business; the PIN identifies the employee.
	// locationID may be empty to let the server pick a default.
	LoginWithPin(ctx context.Context, pin, deviceToken, locationID string) (*LoginResult, error)

	// RefreshSession exchanges a soon-to-expire session token for a new one.
	RefreshSession(ctx context.Context, sessionToken string) (*RefreshResult, error)

	// SwitchLocation re-scopes the session to another location and returns
	// the new location context, including the employee's role there.
	SwitchLocation(ctx context.Context, sessionToken, locationID string) (*Location, error)

	// Logout invalidates the session server-side.
	Logout(ctx context.Context, sessionToken string) error
}
