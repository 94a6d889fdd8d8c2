package costs

import (
	"github.com/iksnae/orgdash/internal"
	"github.com/shopspring/decimal"
)

// Record is one of the cost record shapes.
type Record interface {
	internal.ModelCost | internal.StageCost | internal.UserCost
}

// UnnamedUser is shown for per-user records without a username.
const UnnamedUser = "(no name)"

var tripleHeaders = []string{"Input Tokens", "Output Tokens", "Input Cost", "Output Cost", "Total Cost", "Share"}

// Headers returns the table headers for the record shape R.
func Headers[R Record]() []string {
	var zero R
	var lead []string
	switch any(zero).(type) {
	case internal.ModelCost:
		lead = []string{"Model", "Uses"}
	case internal.StageCost:
		lead = []string{"Stage", "Uses"}
	case internal.UserCost:
		lead = []string{"User ID", "Username", "Conversations"}
	}
	return append(lead, tripleHeaders...)
}

// ComputeTableRows formats records into a table. Each row carries its share
// of the records' combined cost. No records yields the placeholder row.
func ComputeTableRows[R Record](f *internal.Formatter, records []R) internal.Table {
	headers := Headers[R]()
	if len(records) == 0 {
		return internal.NewTable(headers, nil, internal.NoDataPlaceholder)
	}

	total := Aggregate(records).TotalCost
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		var lead []string
		var t internal.CostTriple
		switch rec := any(r).(type) {
		case internal.ModelCost:
			lead = []string{rec.ModelName, f.Count(rec.UsageCount)}
			t = rec.CostTriple
		case internal.StageCost:
			lead = []string{rec.StageName, f.Count(rec.UsageCount)}
			t = rec.CostTriple
		case internal.UserCost:
			name := rec.Username
			if name == "" {
				name = UnnamedUser
			}
			lead = []string{rec.UserID.String(), name, f.Count(rec.ConversationsCount)}
			t = rec.CostTriple
		}
		rows = append(rows, append(lead,
			f.Tokens(t.TotalInputTokens),
			f.Tokens(t.TotalOutputTokens),
			f.Cost(t.TotalInputCost),
			f.Cost(t.TotalOutputCost),
			f.Cost(t.TotalCost),
			f.Percent(share(t.TotalCost, total)),
		))
	}
	return internal.NewTable(headers, rows, "")
}

func share(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return percent(part, total)
}

// SummaryRows renders the organization-wide cost snapshot as label/value pairs.
func SummaryRows(f *internal.Formatter, s internal.CostSummary) [][2]string {
	return [][2]string{
		{"Total Cost", f.Cost(s.TotalCost)},
		{"Input Tokens", f.Tokens(s.TotalInputTokens)},
		{"Output Tokens", f.Tokens(s.TotalOutputTokens)},
		{"Conversations", f.Count(s.TotalConversations)},
	}
}

// PerUserStats renders the organization total and average cost per user.
func PerUserStats(f *internal.Formatter, p internal.PerUserCosts) [][2]string {
	return [][2]string{
		{"Organization Total", f.Cost(p.TotalOrgCost)},
		{"Average per User", f.Cost(p.AverageCostPerUser)},
		{"Users", f.Count(p.TotalUsers)},
	}
}

// SplitRows renders the input/output split as label/value pairs.
func SplitRows(f *internal.Formatter, s Split) [][2]string {
	return [][2]string{
		{"Input Cost", f.Cost(s.InputCost) + " (" + f.Percent(s.InputPct) + ")"},
		{"Output Cost", f.Cost(s.OutputCost) + " (" + f.Percent(s.OutputPct) + ")"},
	}
}

func sum(values ...float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}
