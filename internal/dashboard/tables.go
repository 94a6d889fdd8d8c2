package dashboard

import (
	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/permission"
	"github.com/iksnae/orgdash/internal/session"
)

// Placeholders shown for empty regions.
const (
	NoMembers     = "No members"
	NoDatabases   = "No databases"
	NoInvitations = "No invitations"
)

// Action cell values.
const (
	ActionRemove = "remove"
	ActionNone   = "-"
)

// MembersTable renders members in server order. Only non-owner members can be
// removed, and only by a caller allowed to manage members.
func MembersTable(members []internal.Member, set permission.Set) internal.Table {
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		action := ActionNone
		if set.CanManageMembers && m.Role != "owner" {
			action = ActionRemove
		}
		rows = append(rows, []string{m.UserID.String(), session.Role(m.Role).Label(), internal.DatePart(m.JoinedAt), action})
	}
	return internal.NewTable([]string{"User ID", "Role", "Joined", "Actions"}, rows, NoMembers)
}

// DatabasesTable renders registered connections. The connection id is shown verbatim.
func DatabasesTable(dbs []internal.DatabaseConnection, set permission.Set) internal.Table {
	rows := make([][]string, 0, len(dbs))
	for _, db := range dbs {
		action := ActionNone
		if set.CanManageDatabases {
			action = ActionRemove
		}
		rows = append(rows, []string{db.Name, db.ConnectionID, internal.DatePart(db.CreatedAt), action})
	}
	return internal.NewTable([]string{"Name", "Connection ID", "Created", "Actions"}, rows, NoDatabases)
}

// InvitationsTable renders codes with their usage and expiry.
func InvitationsTable(f *internal.Formatter, invs []internal.Invitation) internal.Table {
	rows := make([][]string, 0, len(invs))
	for _, inv := range invs {
		rows = append(rows, []string{inv.Code, inv.Usage(), f.Expiry(inv.ExpiresAt)})
	}
	return internal.NewTable([]string{"Code", "Uses", "Expires"}, rows, NoInvitations)
}
