package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the closed set of account roles carried in access tokens.
type Role int

const (
	RoleTenant Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleTenant:
		return "tenant"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole is the only place a role string is interpreted. Matching is
// case-insensitive so "Admin" and "admin" tokens are the same role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tenant":
		return RoleTenant, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return -1, fmt.Errorf("invalid role: %q", s)
	}
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
