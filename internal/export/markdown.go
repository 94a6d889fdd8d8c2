package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/costs"
	"github.com/iksnae/orgdash/internal/dashboard"
)

// MarkdownExporter exports snapshots as a Markdown report
type MarkdownExporter struct {
	Format *internal.Formatter
}

// Export exports a snapshot to Markdown format
func (e *MarkdownExporter) Export(snap *dashboard.Snapshot, w io.Writer) error {
	f := e.Format
	if f == nil {
		f = internal.NewFormatter("en")
	}

	name := snap.Session.OrganizationName
	if name == "" && snap.Overview != nil {
		name = snap.Overview.Org.Name
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", escapeMarkdown(name))
	_, _ = fmt.Fprintf(w, "**Role:** %s  \n", snap.Session.Role.Label())
	if !snap.LoadedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Loaded:** %s  \n", snap.LoadedAt.Format("2006-01-02 15:04:05"))
	}
	if snap.Overview != nil {
		st := snap.Overview.Stats
		_, _ = fmt.Fprintf(w, "**Created:** %s  \n", internal.DatePart(snap.Overview.Org.CreatedAt))
		_, _ = fmt.Fprintf(w, "**Members:** %s | **Databases:** %s | **Active invitations:** %s\n",
			f.Count(st.MembersCount), f.Count(st.DatabasesCount), f.Count(st.ActiveInvitations))
	}
	_, _ = fmt.Fprintf(w, "\n")

	// Action columns carry no meaning in a static report.
	members := dashboard.MembersTable(snap.Members, snap.Permissions)
	writeSection(w, "Members", nil, members.WithoutColumn(len(members.Headers)-1))
	databases := dashboard.DatabasesTable(snap.Databases, snap.Permissions)
	writeSection(w, "Databases", nil, databases.WithoutColumn(len(databases.Headers)-1))

	if snap.Permissions.CanManageInvitations {
		tbl := dashboard.InvitationsTable(f, snap.Invitations)
		writeSection(w, "Invitations", nil, tbl)
	}

	if snap.Permissions.CanViewCosts {
		if snap.CostSummary != nil {
			writeSection(w, "Cost Overview", costs.SummaryRows(f, *snap.CostSummary), internal.Table{})
		}
		if snap.ModelCosts != nil {
			writeSection(w, "Costs by Model", nil, costs.ComputeTableRows(f, snap.ModelCosts))
		}
		if snap.StageCosts != nil {
			writeSection(w, "Costs by Stage", nil, costs.ComputeTableRows(f, snap.StageCosts))
		}
		if snap.Split != nil {
			writeSection(w, "Input / Output Costs", costs.SplitRows(f, *snap.Split), internal.Table{})
		}
		if snap.PerUser != nil {
			writeSection(w, "Costs per User", costs.PerUserStats(f, *snap.PerUser), costs.ComputeTableRows(f, snap.PerUser.Users))
		}
	}

	if len(snap.Failures) > 0 {
		_, _ = fmt.Fprintf(w, "## Failed regions\n\n")
		regions := make([]string, 0, len(snap.Failures))
		for r := range snap.Failures {
			regions = append(regions, string(r))
		}
		sort.Strings(regions)
		for _, r := range regions {
			_, _ = fmt.Fprintf(w, "- **%s:** %s\n", r, escapeMarkdown(snap.Failures[dashboard.Region(r)]))
		}
		_, _ = fmt.Fprintf(w, "\n")
	}

	if len(snap.Discrepancies) > 0 {
		_, _ = fmt.Fprintf(w, "## Discrepancies\n\n")
		for _, d := range snap.Discrepancies {
			_, _ = fmt.Fprintf(w, "- %s\n", escapeMarkdown(d))
		}
		_, _ = fmt.Fprintf(w, "\n")
	}

	return nil
}

func writeSection(w io.Writer, title string, stats [][2]string, tbl internal.Table) {
	_, _ = fmt.Fprintf(w, "## %s\n\n", title)
	for _, kv := range stats {
		_, _ = fmt.Fprintf(w, "- **%s:** %s\n", kv[0], escapeMarkdown(kv[1]))
	}
	if len(stats) > 0 {
		_, _ = fmt.Fprintf(w, "\n")
	}
	if len(tbl.Headers) == 0 {
		return
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(escapeCells(tbl.Headers), " | "))
	_, _ = fmt.Fprintf(w, "|%s\n", strings.Repeat(" --- |", len(tbl.Headers)))
	for _, row := range tbl.Rows {
		cells := make([]string, len(tbl.Headers))
		copy(cells, escapeCells(row))
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	_, _ = fmt.Fprintf(w, "\n")
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(escapeMarkdown(c), "|", "\\|")
	}
	return out
}

// escapeMarkdown escapes markdown emphasis and line breaks in a single value
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "\\*\\*")
	text = strings.ReplaceAll(text, "__", "\\_\\_")
	return strings.ReplaceAll(text, "\n", " ")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
