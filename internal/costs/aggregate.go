package costs

import (
	"fmt"

	"github.com/iksnae/orgdash/internal"
	"github.com/shopspring/decimal"
)

// Tolerance is the absolute difference, in USD, accepted between cost sums.
const Tolerance = 1e-6

// Totals is the sum of a set of cost records.
type Totals struct {
	internal.CostTriple
	Entities    int     `json:"entities" yaml:"entities"`
	AverageCost float64 `json:"average_cost" yaml:"average_cost"`
}

func tripleOf[R Record](r R) internal.CostTriple {
	switch rec := any(r).(type) {
	case internal.ModelCost:
		return rec.CostTriple
	case internal.StageCost:
		return rec.CostTriple
	case internal.UserCost:
		return rec.CostTriple
	}
	return internal.CostTriple{}
}

func labelOf[R Record](r R) string {
	switch rec := any(r).(type) {
	case internal.ModelCost:
		return "model " + rec.ModelName
	case internal.StageCost:
		return "stage " + rec.StageName
	case internal.UserCost:
		return "user " + rec.UserID.String()
	}
	return "record"
}

// Aggregate sums the cost triples of records and derives the per-entity average.
func Aggregate[R Record](records []R) Totals {
	in, out, total := decimal.Zero, decimal.Zero, decimal.Zero
	var t Totals
	for _, r := range records {
		triple := tripleOf(r)
		t.TotalInputTokens += triple.TotalInputTokens
		t.TotalOutputTokens += triple.TotalOutputTokens
		in = in.Add(decimal.NewFromFloat(triple.TotalInputCost))
		out = out.Add(decimal.NewFromFloat(triple.TotalOutputCost))
		total = total.Add(decimal.NewFromFloat(triple.TotalCost))
	}
	t.Entities = len(records)
	t.TotalInputCost = in.InexactFloat64()
	t.TotalOutputCost = out.InexactFloat64()
	t.TotalCost = total.InexactFloat64()
	if t.Entities > 0 {
		t.AverageCost = total.Div(decimal.NewFromInt(int64(t.Entities))).InexactFloat64()
	}
	return t
}

// Discrepancy is a cost consistency check that failed.
type Discrepancy struct {
	Subject string
	Want    float64
	Got     float64
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s: expected %.6f, got %.6f", d.Subject, d.Want, d.Got)
}

func within(a, b float64) bool {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs().
		LessThanOrEqual(decimal.NewFromFloat(Tolerance))
}

// CheckRecords verifies total = input + output for every record.
func CheckRecords[R Record](records []R) []Discrepancy {
	var out []Discrepancy
	for _, r := range records {
		t := tripleOf(r)
		parts := sum(t.TotalInputCost, t.TotalOutputCost).InexactFloat64()
		if !within(t.TotalCost, parts) {
			out = append(out, Discrepancy{Subject: labelOf(r) + " total", Want: parts, Got: t.TotalCost})
		}
	}
	return out
}

// CheckAgainstSummary verifies that records sum to the organization total.
// An empty record set is not checked.
func CheckAgainstSummary[R Record](name string, summary internal.CostSummary, records []R) []Discrepancy {
	if len(records) == 0 {
		return nil
	}
	got := Aggregate(records).TotalCost
	if within(summary.TotalCost, got) {
		return nil
	}
	return []Discrepancy{{Subject: name + " sum vs organization total", Want: summary.TotalCost, Got: got}}
}

// Reconcile checks the cost totals across the loaded views and logs a
// warning per violation. Views that were not loaded are passed as nil.
func Reconcile(summary *internal.CostSummary, models []internal.ModelCost, stages []internal.StageCost, users []internal.UserCost) []Discrepancy {
	var found []Discrepancy
	found = append(found, CheckRecords(models)...)
	found = append(found, CheckRecords(stages)...)
	found = append(found, CheckRecords(users)...)
	if summary != nil {
		found = append(found, CheckAgainstSummary("by-model", *summary, models)...)
		found = append(found, CheckAgainstSummary("by-stage", *summary, stages)...)
		found = append(found, CheckAgainstSummary("per-user", *summary, users)...)
	}
	for _, d := range found {
		internal.LogWarn("Cost mismatch, %s", d)
	}
	return found
}
