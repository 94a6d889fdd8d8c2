package permission

import "github.com/iksnae/orgdash/internal/session"

// Element is a UI element whose visibility depends on permissions.
type Element string

const (
	AddMemberForm         Element = "add-member-form"
	CreateDatabaseForm    Element = "create-database-form"
	CreateInvitationForm  Element = "create-invitation-form"
	MembersActionColumn   Element = "members-action-column"
	DatabasesActionColumn Element = "databases-action-column"
	InvitationsTab        Element = "invitations-tab"
	CostsTab              Element = "costs-tab"
)

// Elements lists every element the applier sets, in a stable order.
var Elements = []Element{
	AddMemberForm,
	CreateDatabaseForm,
	CreateInvitationForm,
	MembersActionColumn,
	DatabasesActionColumn,
	InvitationsTab,
	CostsTab,
}

// Surface receives visibility toggles.
type Surface interface {
	SetVisible(el Element, visible bool)
}

// Applier configures a Surface from a permission set.
type Applier struct {
	surface Surface
}

// NewApplier returns an Applier writing to surface.
func NewApplier(surface Surface) *Applier {
	return &Applier{surface: surface}
}

// Visibility computes the visibility of every element. A member role hides
// the invitations tab whatever the flags say.
func Visibility(set Set, role session.Role) map[Element]bool {
	vis := map[Element]bool{
		AddMemberForm:         set.CanManageMembers,
		CreateDatabaseForm:    set.CanManageDatabases,
		CreateInvitationForm:  set.CanManageInvitations,
		MembersActionColumn:   set.CanManageMembers,
		DatabasesActionColumn: set.CanManageDatabases,
		InvitationsTab:        set.CanManageInvitations,
		CostsTab:              set.CanViewCosts,
	}
	if role == session.RoleMember {
		vis[InvitationsTab] = false
		vis[CreateInvitationForm] = false
	}
	return vis
}

// Apply sets every element explicitly, so repeated calls never accumulate state.
func (a *Applier) Apply(set Set, role session.Role) {
	vis := Visibility(set, role)
	for _, el := range Elements {
		a.surface.SetVisible(el, vis[el])
	}
}
