package render

import (
	"errors"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/orgdash/internal/costs"
)

// Split chart colors.
const (
	InputColor  = "#3498db"
	OutputColor = "#e74c3c"
)

// ErrChartLive is returned when a chart is requested while another is still live.
var ErrChartLive = errors.New("a split chart is already live")

// splitChart is a horizontal stacked bar of the input/output split.
type splitChart struct {
	split     costs.Split
	width     int
	destroyed bool
	owner     *Terminal
}

func (c *splitChart) Destroy() {
	c.owner.mu.Lock()
	defer c.owner.mu.Unlock()
	if c.destroyed {
		return
	}
	c.destroyed = true
	if c.owner.chart == c {
		c.owner.chart = nil
	}
}

func (c *splitChart) render(r *lipgloss.Renderer) string {
	in, out := barWidths(c.split, c.width)
	var b strings.Builder
	b.WriteString(r.NewStyle().Foreground(lipgloss.Color(InputColor)).Render(strings.Repeat("█", in)))
	b.WriteString(r.NewStyle().Foreground(lipgloss.Color(OutputColor)).Render(strings.Repeat("█", out)))
	if rest := c.width - in - out; rest > 0 {
		b.WriteString(r.NewStyle().Foreground(lipgloss.Color("240")).Render(strings.Repeat("░", rest)))
	}
	return b.String()
}

// barWidths splits width cells between input and output in proportion to
// their percentages. An all-zero split draws nothing. Percentages outside
// 0..100 (costs above the total, negative costs) are clamped to the bar.
func barWidths(s costs.Split, width int) (int, int) {
	if s.InputPct+s.OutputPct <= 0 || width <= 0 {
		return 0, 0
	}
	in := int(math.Round(s.InputPct / 100 * float64(width)))
	out := int(math.Round(s.OutputPct / 100 * float64(width)))
	in = max(0, min(in, width))
	out = max(0, min(out, width-in))
	return in, out
}
