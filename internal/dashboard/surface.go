package dashboard

import (
	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/costs"
	"github.com/iksnae/orgdash/internal/permission"
	"github.com/iksnae/orgdash/internal/session"
)

// Surface is the rendering target of the dashboard. The orchestrator calls it
// from one goroutine at a time.
type Surface interface {
	permission.Surface

	ShowOverview(sess session.Session, overview internal.Overview)
	ShowTable(region Region, table internal.Table)
	ShowStats(region Region, stats [][2]string)
	ShowFailure(region Region, err error)
	ShowInvitationCreated(inv internal.CreatedInvitation)
	ShowNotice(message string)

	// NewSplitChart draws the input/output split chart.
	NewSplitChart(split costs.Split) (costs.ChartHandle, error)
}
