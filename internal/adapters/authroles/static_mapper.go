// Package authroles maps identity provider groups to application roles.
package authroles

import (
	"strings"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/ports"
)

// StaticRoleMapper grants admin to members of AdminGroup and user to members
// of UserGroup. Anyone else is a guest. Group names compare case-insensitively.
type StaticRoleMapper struct {
	AdminGroup string
	UserGroup  string
}

var _ ports.RoleMapper = StaticRoleMapper{}

// Map returns the highest role granted by groups.
func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	switch {
	case memberOf(groups, m.AdminGroup):
		return domainauth.RoleAdmin
	case memberOf(groups, m.UserGroup):
		return domainauth.RoleUser
	default:
		return domainauth.RoleGuest
	}
}

func memberOf(groups []string, want string) bool {
	want = strings.TrimSpace(want)
	if want == "" {
		return false
	}
	for _, g := range groups {
		if strings.EqualFold(strings.TrimSpace(g), want) {
			return true
		}
	}
	return false
}
