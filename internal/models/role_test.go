package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, in := range []string{"admin", "Admin", " ADMIN "} {
		r, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, RoleAdmin, r)
	}

	r, err := ParseRole("Tenant")
	require.NoError(t, err)
	assert.Equal(t, RoleTenant, r)
	assert.Equal(t, "tenant", r.String())

	_, err = ParseRole("landlord")
	require.Error(t, err)
}
