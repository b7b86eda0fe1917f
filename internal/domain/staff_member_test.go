package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStaffRole(t *testing.T) {
	role, err := ParseStaffRole(" supervisor ")
	require.NoError(t, err)
	assert.Equal(t, StaffRoleSupervisor, role)

	_, err = ParseStaffRole("AGENT")
	assert.Error(t, err)
}

func TestStaffMember_CoversDepartment(t *testing.T) {
	it, hr := "it", "hr"
	tech := &StaffMember{Role: StaffRoleTechnician, DepartmentID: &it}
	admin := &StaffMember{Role: StaffRoleAdmin}
	floating := &StaffMember{Role: StaffRoleSupervisor}

	assert.True(t, tech.CoversDepartment(&it))
	assert.False(t, tech.CoversDepartment(&hr))
	assert.False(t, tech.CoversDepartment(nil))
	assert.True(t, admin.CoversDepartment(nil))
	assert.True(t, admin.CoversDepartment(&hr))
	assert.False(t, floating.CoversDepartment(&it))

	var nobody *StaffMember
	assert.False(t, nobody.CoversDepartment(&it))
	assert.False(t, nobody.IsAdmin())
}

func TestUser_CanSignIn(t *testing.T) {
	assert.True(t, (&User{Status: UserStatusActive}).CanSignIn())
	assert.False(t, (&User{Status: UserStatusSuspended}).CanSignIn())
	var missing *User
	assert.False(t, missing.CanSignIn())
}

func TestDepartment_Apply(t *testing.T) {
	_, err := NewDepartment("   ", "x")
	assert.ErrorIs(t, err, ErrDepartmentName)

	dept, err := NewDepartment(" Service Desk ", " first line ")
	require.NoError(t, err)
	assert.Equal(t, "Service Desk", dept.Name)
	assert.Equal(t, "first line", dept.Description)
	assert.True(t, dept.IsActive)

	inactive := false
	require.NoError(t, dept.Apply("", "", &inactive))
	assert.Equal(t, "Service Desk", dept.Name)
	assert.Empty(t, dept.Description)
	assert.False(t, dept.IsActive)
}
