// Package permission derives the capability set of a session role and maps it
// onto the dashboard's visibility toggles.
package permission

import "github.com/iksnae/orgdash/internal/session"

// Set holds the capability flags of a role.
type Set struct {
	CanManageMembers     bool `json:"can_manage_members" yaml:"can_manage_members"`
	CanManageDatabases   bool `json:"can_manage_databases" yaml:"can_manage_databases"`
	CanManageInvitations bool `json:"can_manage_invitations" yaml:"can_manage_invitations"`
	CanViewCosts         bool `json:"can_view_costs" yaml:"can_view_costs"`
}

// Derive maps a role onto its capabilities. Owners get everything; members and
// any unrecognized role get nothing.
func Derive(role session.Role) Set {
	if role != session.RoleOwner {
		return Set{}
	}
	return Set{
		CanManageMembers:     true,
		CanManageDatabases:   true,
		CanManageInvitations: true,
		CanViewCosts:         true,
	}
}

// Any reports whether at least one flag is set.
func (s Set) Any() bool {
	return s.CanManageMembers || s.CanManageDatabases || s.CanManageInvitations || s.CanViewCosts
}
