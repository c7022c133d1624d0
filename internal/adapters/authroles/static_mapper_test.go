package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
)

func TestStaticRoleMapper_Map(t *testing.T) {
	t.Parallel()
	m := StaticRoleMapper{AdminGroup: "unevent-admins", UserGroup: "unevent-users"}

	tests := []struct {
		name   string
		groups []string
		want   domainauth.Role
	}{
		{"admin wins over user", []string{"unevent-users", "unevent-admins"}, domainauth.RoleAdmin},
		{"user", []string{"unevent-users"}, domainauth.RoleUser},
		{"case and spaces", []string{" UnEvent-Admins "}, domainauth.RoleAdmin},
		{"unrelated", []string{"staff"}, domainauth.RoleGuest},
		{"none", nil, domainauth.RoleGuest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, m.Map(tt.groups))
		})
	}
}

func TestStaticRoleMapper_EmptyGroupsNeverMatch(t *testing.T) {
	t.Parallel()
	assert.Equal(t, domainauth.RoleGuest, StaticRoleMapper{}.Map([]string{""}))
}
