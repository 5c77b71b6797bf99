package model

import "strings"

type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super admin"
)

// ClassifyRole maps a free-text role to the closed set. Any role containing
// "admin" (case-insensitive) is elevated.
func ClassifyRole(raw string) Role {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(lower, "admin") {
		return RoleStudent
	}
	if strings.Contains(lower, "super") {
		return RoleSuperAdmin
	}
	return RoleAdmin
}

func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// ValidUserRole reports whether role is one of the roles the admin console assigns.
func ValidUserRole(role string) bool {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleStudent, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
