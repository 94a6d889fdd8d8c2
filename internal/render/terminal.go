// Package render draws the dashboard on a terminal with lipgloss.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/costs"
	"github.com/iksnae/orgdash/internal/dashboard"
	"github.com/iksnae/orgdash/internal/permission"
	"github.com/iksnae/orgdash/internal/session"
)

// Titles of the rendered regions.
var Titles = map[dashboard.Region]string{
	dashboard.RegionOverview:      "Overview",
	dashboard.RegionMembers:       "Members",
	dashboard.RegionDatabases:     "Databases",
	dashboard.RegionInvitations:   "Invitations",
	dashboard.RegionCostsOverview: "Cost Overview",
	dashboard.RegionCostsByModel:  "Costs by Model",
	dashboard.RegionCostsByStage:  "Costs by Stage",
	dashboard.RegionCostsSplit:    "Input / Output Costs",
	dashboard.RegionCostsPerUser:  "Costs per User",
}

// Hints printed under a region when the matching form is visible.
var formHints = map[dashboard.Region]struct {
	el   permission.Element
	text string
}{
	dashboard.RegionMembers:     {permission.AddMemberForm, "Add a member: orgdash members add <user-id>"},
	dashboard.RegionDatabases:   {permission.CreateDatabaseForm, "Register a database: orgdash databases create <name> <connection-string>"},
	dashboard.RegionInvitations: {permission.CreateInvitationForm, "Create an invitation: orgdash invitations create --max-uses N"},
}

// Action columns, always the last column of their table.
var actionColumns = map[dashboard.Region]permission.Element{
	dashboard.RegionMembers:   permission.MembersActionColumn,
	dashboard.RegionDatabases: permission.DatabasesActionColumn,
}

type overviewView struct {
	sess     session.Session
	overview internal.Overview
}

// Terminal is a dashboard.Surface that buffers region output and writes it
// in display order on Flush.
type Terminal struct {
	out      io.Writer
	renderer *lipgloss.Renderer
	format   *internal.Formatter
	barWidth int

	mu       sync.Mutex
	visible  map[permission.Element]bool
	overview *overviewView
	tables   map[dashboard.Region]internal.Table
	stats    map[dashboard.Region][][2]string
	failures map[dashboard.Region]error
	created  []internal.CreatedInvitation
	notices  []string
	chart    *splitChart

	titleStyle   lipgloss.Style
	sectionStyle lipgloss.Style
	labelStyle   lipgloss.Style
	valueStyle   lipgloss.Style
	badgeStyle   lipgloss.Style
	hintStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	boxStyle     lipgloss.Style
}

// NewTerminal creates a Terminal writing to out.
func NewTerminal(out io.Writer, format *internal.Formatter) *Terminal {
	r := lipgloss.NewRenderer(out)
	return &Terminal{
		out:      out,
		renderer: r,
		format:   format,
		barWidth: 40,
		visible:  make(map[permission.Element]bool),
		tables:   make(map[dashboard.Region]internal.Table),
		stats:    make(map[dashboard.Region][][2]string),
		failures: make(map[dashboard.Region]error),

		titleStyle:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		sectionStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).MarginTop(1),
		labelStyle:   r.NewStyle().Foreground(lipgloss.Color("243")),
		valueStyle:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("255")),
		badgeStyle:   r.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1),
		hintStyle:    r.NewStyle().Foreground(lipgloss.Color("240")).Italic(true),
		errorStyle:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		successStyle: r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		headerStyle:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1),
		cellStyle:    r.NewStyle().Padding(0, 1),
		boxStyle:     r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 2),
	}
}

func (t *Terminal) SetVisible(el permission.Element, visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visible[el] = visible
}

// Visible reports the current visibility of el.
func (t *Terminal) Visible(el permission.Element) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible[el]
}

func (t *Terminal) ShowOverview(sess session.Session, ov internal.Overview) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.overview = &overviewView{sess: sess, overview: ov}
	delete(t.failures, dashboard.RegionOverview)
}

func (t *Terminal) ShowTable(r dashboard.Region, tbl internal.Table) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tables[r] = tbl
	delete(t.failures, r)
}

func (t *Terminal) ShowStats(r dashboard.Region, stats [][2]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats[r] = stats
	delete(t.failures, r)
}

func (t *Terminal) ShowFailure(r dashboard.Region, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[r] = err
}

func (t *Terminal) ShowInvitationCreated(inv internal.CreatedInvitation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.created = append(t.created, inv)
}

func (t *Terminal) ShowNotice(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notices = append(t.notices, msg)
}

// NewSplitChart creates the split chart. Only one chart may be live.
func (t *Terminal) NewSplitChart(split costs.Split) (costs.ChartHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.chart != nil {
		return nil, ErrChartLive
	}
	t.chart = &splitChart{split: split, width: t.barWidth, owner: t}
	return t.chart, nil
}

// Flush writes notices, the overview and the given regions (all loaded
// regions when none are given), honoring element visibility.
func (t *Terminal) Flush(regions ...dashboard.Region) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(regions) == 0 {
		regions = dashboard.AllRegions
	}
	var b strings.Builder
	for _, n := range t.notices {
		b.WriteString(t.successStyle.Render("✓ "+n) + "\n")
	}
	for _, inv := range t.created {
		b.WriteString(t.renderCreated(inv) + "\n")
	}
	for _, r := range regions {
		if section := t.renderRegion(r); section != "" {
			b.WriteString(section + "\n")
		}
	}
	t.notices, t.created = nil, nil

	_, err := io.WriteString(t.out, b.String())
	return err
}

func (t *Terminal) hidden(r dashboard.Region) bool {
	switch {
	case r == dashboard.RegionInvitations:
		return !t.visible[permission.InvitationsTab]
	case r.IsCost():
		return !t.visible[permission.CostsTab]
	}
	return false
}

func (t *Terminal) renderRegion(r dashboard.Region) string {
	if t.hidden(r) {
		return ""
	}
	if err, ok := t.failures[r]; ok {
		return t.sectionStyle.Render(Titles[r]) + "\n" +
			t.errorStyle.Render("✗ Failed to load "+strings.ToLower(Titles[r])+": "+err.Error())
	}
	if r == dashboard.RegionOverview {
		if t.overview == nil {
			return ""
		}
		return t.renderOverview(*t.overview)
	}

	var parts []string
	if stats, ok := t.stats[r]; ok {
		parts = append(parts, t.renderStats(stats))
	}
	if r == dashboard.RegionCostsSplit && t.chart != nil {
		parts = append(parts, t.chart.render(t.renderer)+"  "+t.legend())
	}
	if tbl, ok := t.tables[r]; ok {
		if el, ok := actionColumns[r]; ok && !t.visible[el] {
			tbl = tbl.WithoutColumn(len(tbl.Headers) - 1)
		}
		parts = append(parts, t.renderTable(tbl))
	}
	if len(parts) == 0 {
		return ""
	}
	if hint, ok := formHints[r]; ok && t.visible[hint.el] {
		parts = append(parts, t.hintStyle.Render(hint.text))
	}
	return t.sectionStyle.Render(Titles[r]) + "\n" + strings.Join(parts, "\n")
}

func (t *Terminal) renderOverview(v overviewView) string {
	name := v.sess.OrganizationName
	if name == "" {
		name = v.overview.Org.Name
	}
	header := t.titleStyle.Render(name) + " " + t.badgeStyle.Render(v.sess.Role.Label())

	box := func(label string, n int) string {
		return t.boxStyle.Render(t.valueStyle.Render(t.format.Count(n)) + "\n" + t.labelStyle.Render(label))
	}
	counters := lipgloss.JoinHorizontal(lipgloss.Top,
		box("Members", v.overview.Stats.MembersCount),
		box("Databases", v.overview.Stats.DatabasesCount),
		box("Active Invitations", v.overview.Stats.ActiveInvitations),
	)
	created := t.labelStyle.Render("Created: ") + internal.DatePart(v.overview.Org.CreatedAt)
	return header + "\n" + created + "\n" + counters
}

func (t *Terminal) renderStats(stats [][2]string) string {
	lines := make([]string, 0, len(stats))
	for _, kv := range stats {
		lines = append(lines, t.labelStyle.Render(kv[0]+": ")+t.valueStyle.Render(kv[1]))
	}
	return strings.Join(lines, "\n")
}

func (t *Terminal) renderTable(tbl internal.Table) string {
	tt := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(t.renderer.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(tbl.Headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return t.headerStyle
			}
			return t.cellStyle
		})
	for _, row := range tbl.Rows {
		if tbl.Placeholder {
			// Pad so the placeholder sits in the first column of a full-width row.
			padded := make([]string, len(tbl.Headers))
			copy(padded, row)
			row = padded
		}
		tt.Row(row...)
	}
	return tt.String()
}

func (t *Terminal) legend() string {
	in := t.renderer.NewStyle().Foreground(lipgloss.Color(InputColor)).Render("■ Input")
	out := t.renderer.NewStyle().Foreground(lipgloss.Color(OutputColor)).Render("■ Output")
	return in + " " + out
}

func (t *Terminal) renderCreated(inv internal.CreatedInvitation) string {
	hours := int(internal.InvitationTTL.Hours())
	lines := []string{
		t.successStyle.Render("✓ Invitation created"),
		t.labelStyle.Render("Code: ") + t.valueStyle.Render(inv.Code),
		t.labelStyle.Render("Link: ") + inv.Link,
		t.labelStyle.Render("Uses: ") + fmt.Sprintf("%d", inv.MaxUses) + t.labelStyle.Render(" | Valid for: ") + fmt.Sprintf("%d hours", hours),
	}
	return t.boxStyle.Render(strings.Join(lines, "\n"))
}
