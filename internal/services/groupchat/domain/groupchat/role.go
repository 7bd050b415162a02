package groupchat

import "strings"

// Role is a member's permission level.
type Role int

const (
	RoleMember Role = iota + 1
	RoleAdmin
)

// String returns the wire form of the role.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleMember:
		return "MEMBER"
	default:
		return "UNKNOWN"
	}
}

// ParseRole reads the wire form of a role.
func ParseRole(v string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "ADMIN":
		return RoleAdmin, nil
	case "MEMBER":
		return RoleMember, nil
	default:
		return 0, ErrMemberRoleUnknown
	}
}
