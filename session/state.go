package session

import (
	"time"

	"github.com/opencounter/posauth/permission"
	"github.com/opencounter/posauth/transport"
)

// State is the authentication state of the terminal. Exactly one state is
// active at a time and only the Manager transitions between them.
type State int

const (
	// StateLoading means the manager has not yet probed the credential
	// store. The UI shows a splash screen.
	StateLoading State = iota
	// StateDeviceNotActivated means no device token exists; the terminal
	// must be bound to a business with owner or manager credentials.
	StateDeviceNotActivated
	// StateNeedsPin means the device is bound and an employee must enter
	// their PIN.
	StateNeedsPin
	// StateAuthenticated means an employee session is live. Identity,
	// location and an unexpired token are all present.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateDeviceNotActivated:
		return "device_not_activated"
	case StateNeedsPin:
		return "needs_pin"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is the read-only view of the session published to feature
// screens. Permission fields are recomputed from the current location's role
// every time a snapshot is built, so they can never drift from the
// (identity, location) pairing.
type Snapshot struct {
	State              State
	Identity           *transport.Employee
	Location           *transport.Location
	AvailableLocations []transport.Location
	ExpiresAt          time.Time
	Loading            bool
	LastErr            error

	Permissions        permission.Set
	CanManageEmployees bool
	CanManageInventory bool
	CanViewReports     bool
	CanManageExpenses  bool
}

// Role returns the employee's role at the current location, or the empty
// role when not authenticated.
func (s Snapshot) Role() permission.Role {
	if s.Location == nil {
		return ""
	}
	return s.Location.Role
}
