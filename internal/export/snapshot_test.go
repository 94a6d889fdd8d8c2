package export

import (
	"time"

	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/costs"
	"github.com/iksnae/orgdash/internal/dashboard"
	"github.com/iksnae/orgdash/internal/permission"
	"github.com/iksnae/orgdash/internal/session"
)

func ownerSnapshot() *dashboard.Snapshot {
	triple := internal.CostTriple{
		TotalInputTokens:  1200,
		TotalOutputTokens: 800,
		TotalInputCost:    0.25,
		TotalOutputCost:   0.5,
		TotalCost:         0.75,
	}
	return &dashboard.Snapshot{
		Session: dashboard.SessionInfo{
			Role:             session.RoleOwner,
			OrganizationID:   "1",
			OrganizationName: "Acme",
			UserID:           "7",
		},
		Permissions: permission.Derive(session.RoleOwner),
		Overview: &internal.Overview{
			Org:   internal.Organization{ID: "1", Name: "Acme", CreatedAt: "2024-01-01T00:00:00"},
			Stats: internal.OrgStats{MembersCount: 2, DatabasesCount: 1, ActiveInvitations: 1},
		},
		Members: []internal.Member{
			{UserID: "7", Role: "owner", JoinedAt: "2024-01-01T00:00:00"},
			{UserID: "8", Role: "member", JoinedAt: "2024-02-01T00:00:00"},
		},
		Databases: []internal.DatabaseConnection{
			{Name: "analytics", ConnectionID: "conn_1", CreatedAt: "2024-01-05T00:00:00", IsActive: true},
		},
		Invitations: []internal.Invitation{
			{Code: "INV0001", CurrentUses: 0, MaxUses: 5, ExpiresAt: "2099-01-01T00:00:00", IsActive: true},
		},
		CostSummary: &internal.CostSummary{TotalCost: 0.75, TotalInputTokens: 1200, TotalOutputTokens: 800, TotalConversations: 3},
		ModelCosts:  []internal.ModelCost{{ModelName: "gpt-4", UsageCount: 3, CostTriple: triple}},
		StageCosts:  []internal.StageCost{{StageName: "sql_generation", UsageCount: 3, CostTriple: triple}},
		Split:       &costs.Split{InputCost: 0.25, OutputCost: 0.5, TotalCost: 0.75, InputPct: 33.33, OutputPct: 66.67},
		PerUser: &internal.PerUserCosts{
			Users:              []internal.UserCost{{UserID: "7", Username: "alice", ConversationsCount: 3, CostTriple: triple}},
			TotalOrgCost:       0.75,
			AverageCostPerUser: 0.75,
			TotalUsers:         1,
		},
		States: map[dashboard.Region]dashboard.RegionState{
			dashboard.RegionMembers: dashboard.Loaded,
		},
		LoadedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func memberSnapshot() *dashboard.Snapshot {
	return &dashboard.Snapshot{
		Session:     dashboard.SessionInfo{Role: session.RoleMember, OrganizationName: "Acme", UserID: "8"},
		Permissions: permission.Derive(session.RoleMember),
		Members:     []internal.Member{{UserID: "8", Role: "member", JoinedAt: "2024-02-01T00:00:00"}},
		Failures:    map[dashboard.Region]string{dashboard.RegionDatabases: "databases failed with status 500: boom"},
	}
}
