package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor_ExhaustiveOverRoles(t *testing.T) {
	for _, role := range Roles {
		perms := For(role)
		require.NotNil(t, perms, "role %s has no permission set", role)
	}
}

func TestFor_OwnerHasFullUniverse(t *testing.T) {
	perms := For(RoleOwner)
	for _, p := range All {
		assert.True(t, perms.Has(p), "owner missing %s", p)
	}
}

func TestFor_EveryPermissionReachable(t *testing.T) {
	for _, p := range All {
		reachable := false
		for _, role := range Roles {
			if For(role).Has(p) {
				reachable = true
				break
			}
		}
		assert.True(t, reachable, "permission %s granted by no role", p)
	}
}

func TestFor_UnknownRoleGetsNothing(t *testing.T) {
	perms := For(Role("intern"))
	for _, p := range All {
		assert.False(t, perms.Has(p))
	}
}

func TestFor_ReturnsCopy(t *testing.T) {
	perms := For(RoleCashier)
	perms[ManageEmployees] = true
	assert.False(t, For(RoleCashier).Has(ManageEmployees))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		role            Role
		manageEmployees bool
		manageInventory bool
		viewReports     bool
		manageExpenses  bool
	}{
		{RoleOwner, true, true, true, true},
		{RoleManager, false, true, true, true},
		{RoleCashier, false, false, false, false},
		{RoleAccountant, false, false, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.manageEmployees, CanManageEmployees(tt.role))
			assert.Equal(t, tt.manageInventory, CanManageInventory(tt.role))
			assert.Equal(t, tt.viewReports, CanViewReports(tt.role))
			assert.Equal(t, tt.manageExpenses, CanManageExpenses(tt.role))
		})
	}
}

func TestCanViewReports_InvalidRole(t *testing.T) {
	// An unparsed or corrupt role must never pass a predicate.
	assert.False(t, CanViewReports(Role("")))
	assert.False(t, CanViewReports(Role("superuser")))
}

func TestParse(t *testing.T) {
	r, err := Parse("manager")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, r)

	_, err = Parse("admin")
	assert.Error(t, err)
}
