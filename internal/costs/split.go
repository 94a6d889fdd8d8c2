// Package costs turns raw cost payloads into render-ready contracts: the
// input/output split chart, per-entity tables and organization aggregates.
package costs

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Split is the input/output cost breakdown handed to the chart.
type Split struct {
	InputCost  float64 `json:"input_cost" yaml:"input_cost"`
	OutputCost float64 `json:"output_cost" yaml:"output_cost"`
	TotalCost  float64 `json:"total_cost" yaml:"total_cost"`
	InputPct   float64 `json:"input_pct" yaml:"input_pct"`
	OutputPct  float64 `json:"output_pct" yaml:"output_pct"`
}

// ComputeInputOutputSplit derives percentages from a raw payload. Missing or
// non-numeric fields count as zero; a zero total yields zero percentages.
func ComputeInputOutputSplit(payload map[string]any) Split {
	s := Split{
		InputCost:  number(payload["input_cost"]),
		OutputCost: number(payload["output_cost"]),
		TotalCost:  number(payload["total_cost"]),
	}
	if s.TotalCost > 0 {
		s.InputPct = percent(s.InputCost, s.TotalCost)
		s.OutputPct = percent(s.OutputCost, s.TotalCost)
	}
	return s
}

// number coerces v to a finite float64, or 0. Booleans are not numbers.
func number(v any) float64 {
	if _, ok := v.(bool); ok {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func percent(part, total float64) float64 {
	pct, _ := decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(total)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return pct
}
