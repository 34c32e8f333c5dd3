// Package permission defines the role model for a business and the
// capabilities each role grants. The mapping is static: it has no state and
// no failure modes, and is consumed both by the session manager and by
// feature screens deciding what to render.
package permission

import "fmt"

// Role is an employee's permission level at a single location. Roles are
// location-scoped: the same employee may hold different roles at different
// locations, so a Role must always be read from the current location
// context rather than cached globally.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleCashier    Role = "cashier"
	RoleAccountant Role = "accountant"
)

// Roles lists every valid role.
var Roles = []Role{RoleOwner, RoleManager, RoleCashier, RoleAccountant}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleCashier, RoleAccountant:
		return true
	}
	return false
}

// Parse converts a wire-format role string into a Role.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Permission is a single capability gated by role.
type Permission string

const (
	ManageEmployees  Permission = "manage_employees"
	AdjustInventory  Permission = "adjust_inventory"
	ReceiveInventory Permission = "receive_inventory"
	ViewInventory    Permission = "view_inventory"
	ManageExpenses   Permission = "manage_expenses"
	ViewExpenses     Permission = "view_expenses"
	ViewReports      Permission = "view_reports"
)

// All lists the closed permission universe.
var All = []Permission{
	ManageEmployees,
	AdjustInventory,
	ReceiveInventory,
	ViewInventory,
	ManageExpenses,
	ViewExpenses,
	ViewReports,
}

// Set is the collection of permissions granted to a role.
type Set map[Permission]bool

// Has reports whether the set grants p.
func (s Set) Has(p Permission) bool {
	return s[p]
}

var rolePermissions = map[Role]Set{
	RoleOwner: {
		ManageEmployees:  true,
		AdjustInventory:  true,
		ReceiveInventory: true,
		ViewInventory:    true,
		ManageExpenses:   true,
		ViewExpenses:     true,
		ViewReports:      true,
	},
	RoleManager: {
		AdjustInventory:  true,
		ReceiveInventory: true,
		ViewInventory:    true,
		ManageExpenses:   true,
		ViewExpenses:     true,
		ViewReports:      true,
	},
	RoleCashier: {
		ReceiveInventory: true,
		ViewInventory:    true,
		ViewExpenses:     true,
	},
	RoleAccountant: {
		ViewInventory:    true,
		ManageExpenses:   true,
		ViewExpenses:     true,
		ViewReports:      true,
	},
}

// For returns the permission set granted by role. Unknown roles get an empty
// set, never a panic, so a malformed wire role degrades to "no access".
func For(role Role) Set {
	perms, ok := rolePermissions[role]
	if !ok {
		return Set{}
	}
	// Copy so callers can't mutate the shared table.
	out := make(Set, len(perms))
	for p := range perms {
		out[p] = true
	}
	return out
}

// Convenience predicates used by feature screens. All are derived from the
// current location's role and must be recomputed whenever identity or
// location changes.

// CanManageEmployees reports whether role may manage the employee roster.
func CanManageEmployees(role Role) bool {
	return role == RoleOwner
}

// CanManageInventory reports whether role may adjust inventory counts.
func CanManageInventory(role Role) bool {
	return role == RoleOwner || role == RoleManager
}

// CanViewReports reports whether role may open the reports screens.
func CanViewReports(role Role) bool {
	return role.Valid() && role != RoleCashier
}

// CanManageExpenses reports whether role may create and edit expenses.
func CanManageExpenses(role Role) bool {
	return role == RoleOwner || role == RoleManager || role == RoleAccountant
}
