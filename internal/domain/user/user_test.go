package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" driver ")
	require.NoError(t, err)
	assert.Equal(t, RoleDriver, role)
	assert.True(t, role.IsDriver())

	role, err = ParseRole("CUSTOMER")
	require.NoError(t, err)
	assert.True(t, role.IsCustomer())

	_, err = ParseRole("OPERATOR")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestNewUser(t *testing.T) {
	u, err := NewUser("driver@example.com", RoleDriver, "bcrypt-hash", Attrs{"license": "AB123"})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, u.Status)
	assert.True(t, u.IsDriver())
	assert.True(t, u.IsActive())

	_, err = NewUser("not-an-email", RoleDriver, "bcrypt-hash", nil)
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewUser("driver@example.com", RoleDriver, "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyPasswordHash)
}

func TestUserSetters(t *testing.T) {
	u, err := NewUser("rider@example.com", RoleCustomer, "bcrypt-hash", nil)
	require.NoError(t, err)

	require.NoError(t, u.SetRole(RoleDriver))
	assert.True(t, u.IsDriver())

	require.NoError(t, u.SetStatus(StatusBanned))
	assert.False(t, u.IsActive())

	assert.ErrorIs(t, u.SetRole(Role("OPERATOR")), ErrInvalidRole)
}
