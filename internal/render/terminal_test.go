package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/costs"
	"github.com/iksnae/orgdash/internal/dashboard"
	"github.com/iksnae/orgdash/internal/permission"
	"github.com/iksnae/orgdash/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTerminal(role session.Role) (*Terminal, *bytes.Buffer) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, internal.NewFormatter("en"))
	permission.NewApplier(term).Apply(permission.Derive(role), role)
	return term, &buf
}

func membersTable() internal.Table {
	return internal.NewTable(
		[]string{"User ID", "Role", "Joined", "Actions"},
		[][]string{{"7", "Owner", "2024-01-01", "-"}, {"8", "Member", "2024-02-01", "remove"}},
		"",
	)
}

func TestTerminalOwnerDashboard(t *testing.T) {
	term, buf := newTestTerminal(session.RoleOwner)

	term.ShowOverview(
		session.Session{Role: session.RoleOwner, OrganizationName: "Acme"},
		internal.Overview{
			Org:   internal.Organization{Name: "Acme", CreatedAt: "2024-01-01T00:00:00"},
			Stats: internal.OrgStats{MembersCount: 2, DatabasesCount: 1, ActiveInvitations: 3},
		},
	)
	term.ShowTable(dashboard.RegionMembers, membersTable())
	term.ShowStats(dashboard.RegionCostsOverview, [][2]string{{"Total Cost", "$0.660000"}})
	_, err := term.NewSplitChart(costs.Split{InputPct: 50, OutputPct: 50})
	require.NoError(t, err)
	term.ShowStats(dashboard.RegionCostsSplit, [][2]string{{"Input", "$0.33 (50.00%)"}})

	require.NoError(t, term.Flush())
	out := buf.String()

	for _, want := range []string{"Acme", "Owner", "2024-01-01", "Members", "Actions", "remove", "Cost Overview", "$0.660000", "Input / Output Costs", "orgdash members add"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "Acme"), strings.Index(out, "Cost Overview"), "overview renders first")
}

func TestTerminalMemberHidesRestricted(t *testing.T) {
	term, buf := newTestTerminal(session.RoleMember)

	term.ShowTable(dashboard.RegionMembers, membersTable())
	term.ShowTable(dashboard.RegionInvitations, internal.NewTable([]string{"Code", "Uses", "Expires"}, [][]string{{"INV1", "0/5", "2024-01-02"}}, ""))
	term.ShowStats(dashboard.RegionCostsOverview, [][2]string{{"Total Cost", "$1.000000"}})

	require.NoError(t, term.Flush())
	out := buf.String()

	assert.Contains(t, out, "Members")
	assert.NotContains(t, out, "Actions", "action column is dropped")
	assert.NotContains(t, out, "remove")
	assert.NotContains(t, out, "INV1", "invitations tab is hidden")
	assert.NotContains(t, out, "Total Cost", "costs tab is hidden")
	assert.NotContains(t, out, "orgdash members add")
	assert.False(t, term.Visible(permission.InvitationsTab))
}

func TestTerminalPlaceholderTable(t *testing.T) {
	term, buf := newTestTerminal(session.RoleOwner)
	term.ShowTable(dashboard.RegionDatabases, internal.NewTable([]string{"Name", "Connection ID", "Created", "Actions"}, nil, "No databases"))

	require.NoError(t, term.Flush(dashboard.RegionDatabases))
	assert.Contains(t, buf.String(), "No databases")
}

func TestTerminalFailureReplacedByData(t *testing.T) {
	term, buf := newTestTerminal(session.RoleOwner)

	term.ShowFailure(dashboard.RegionDatabases, errors.New("boom"))
	require.NoError(t, term.Flush(dashboard.RegionDatabases))
	assert.Contains(t, buf.String(), "Failed to load databases: boom")

	buf.Reset()
	term.ShowTable(dashboard.RegionDatabases, internal.NewTable([]string{"Name"}, [][]string{{"analytics"}}, ""))
	require.NoError(t, term.Flush(dashboard.RegionDatabases))
	assert.NotContains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "analytics")
}

func TestTerminalInvitationCreated(t *testing.T) {
	term, buf := newTestTerminal(session.RoleOwner)
	term.ShowInvitationCreated(internal.CreatedInvitation{Code: "INV0001", Link: "https://yoursite.com/join/INV0001", MaxUses: 5})
	term.ShowNotice("Member added")

	require.NoError(t, term.Flush())
	out := buf.String()
	assert.Contains(t, out, "INV0001")
	assert.Contains(t, out, "https://yoursite.com/join/INV0001")
	assert.Contains(t, out, "5")
	assert.Contains(t, out, "24 hours")
	assert.Contains(t, out, "Member added")

	buf.Reset()
	require.NoError(t, term.Flush())
	assert.NotContains(t, buf.String(), "INV0001", "one-shot output is not repeated")
}

func TestTerminalSingleLiveChart(t *testing.T) {
	term, _ := newTestTerminal(session.RoleOwner)

	first, err := term.NewSplitChart(costs.Split{InputPct: 25, OutputPct: 75})
	require.NoError(t, err)
	_, err = term.NewSplitChart(costs.Split{})
	assert.ErrorIs(t, err, ErrChartLive)

	first.Destroy()
	first.Destroy()
	_, err = term.NewSplitChart(costs.Split{})
	assert.NoError(t, err)
}

func TestTerminalChartThroughView(t *testing.T) {
	term, _ := newTestTerminal(session.RoleOwner)
	view := costs.NewView(term.NewSplitChart)

	for i := 0; i < 3; i++ {
		require.NoError(t, view.Replace(costs.Split{InputPct: 40, OutputPct: 60}))
	}
	view.Close()
	_, err := term.NewSplitChart(costs.Split{})
	assert.NoError(t, err)
}

func TestBarWidths(t *testing.T) {
	tests := []struct {
		name    string
		split   costs.Split
		width   int
		wantIn  int
		wantOut int
	}{
		{"even", costs.Split{InputPct: 50, OutputPct: 50}, 40, 20, 20},
		{"quarter", costs.Split{InputPct: 25, OutputPct: 75}, 40, 10, 30},
		{"zero", costs.Split{}, 40, 0, 0},
		{"rounding", costs.Split{InputPct: 33.33, OutputPct: 66.67}, 10, 3, 7},
		{"no width", costs.Split{InputPct: 50, OutputPct: 50}, 0, 0, 0},
		{"input above total", costs.Split{InputPct: 200}, 40, 40, 0},
		{"negative input", costs.Split{InputPct: -50, OutputPct: 150}, 40, 0, 40},
		{"both above total", costs.Split{InputPct: 80, OutputPct: 80}, 10, 8, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := barWidths(tt.split, tt.width)
			assert.Equal(t, tt.wantIn, in)
			assert.Equal(t, tt.wantOut, out)
		})
	}
}

func TestTerminalFlushOutOfRangeSplit(t *testing.T) {
	payloads := []map[string]any{
		{"input_cost": 200, "output_cost": 0, "total_cost": 100},
		{"input_cost": -50, "output_cost": 150, "total_cost": 100},
	}
	for _, payload := range payloads {
		term, buf := newTestTerminal(session.RoleOwner)
		view := costs.NewView(term.NewSplitChart)

		split, err := view.Render(payload)
		require.NoError(t, err)
		term.ShowStats(dashboard.RegionCostsSplit, costs.SplitRows(internal.NewFormatter("en"), split))

		require.NotPanics(t, func() {
			require.NoError(t, term.Flush(dashboard.RegionCostsSplit))
		})
		assert.Contains(t, buf.String(), "Input / Output Costs")
		view.Close()
	}
}
