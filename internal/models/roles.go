package models

import "fmt"

// Role is an application-wide role. It is a closed enumeration: raw strings
// from tokens or requests must pass through ParseRole at the boundary.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleMember  Role = "Member"
)

// AllRoles lists every valid application role.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleMember}

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleMember:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// RoleSet is a lookup-friendly view over a principal's roles.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from raw strings, dropping anything that is not
// a valid role.
func NewRoleSet(raw []string) RoleSet {
	set := make(RoleSet, len(raw))
	for _, s := range raw {
		if r, err := ParseRole(s); err == nil {
			set[r] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains the role.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Strings returns the roles as raw strings, for token claims.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, r := range AllRoles {
		if s.Has(r) {
			out = append(out, string(r))
		}
	}
	return out
}

// TeamRole is a role scoped to one team. Distinct from application roles:
// it controls what a member may do inside a single project's team.
type TeamRole string

const (
	TeamRoleLead     TeamRole = "lead"
	TeamRoleMember   TeamRole = "member"
	TeamRoleObserver TeamRole = "observer"
)

// ParseTeamRole validates a raw team role string.
func ParseTeamRole(s string) (TeamRole, error) {
	switch TeamRole(s) {
	case TeamRoleLead, TeamRoleMember, TeamRoleObserver:
		return TeamRole(s), nil
	}
	return "", fmt.Errorf("unknown team role: %q", s)
}
