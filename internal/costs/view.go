package costs

import (
	"sync"

	"github.com/iksnae/orgdash/internal"
)

// ChartHandle is a live chart instance on a rendering surface.
type ChartHandle interface {
	Destroy()
}

// ChartFactory draws a new chart for split.
type ChartFactory func(split Split) (ChartHandle, error)

// View owns at most one live chart handle.
type View struct {
	mu      sync.Mutex
	factory ChartFactory
	handle  ChartHandle
}

// NewView creates a View drawing through factory.
func NewView(factory ChartFactory) *View {
	return &View{factory: factory}
}

// Replace destroys the current chart before creating one for split. If the
// factory fails the view is left without a chart.
func (v *View) Replace(split Split) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.handle != nil {
		v.handle.Destroy()
		v.handle = nil
	}
	h, err := v.factory(split)
	if err != nil {
		internal.LogWarn("Failed to draw cost split chart: %v", err)
		return err
	}
	v.handle = h
	return nil
}

// Render computes the split from a raw payload and replaces the chart.
func (v *View) Render(payload map[string]any) (Split, error) {
	split := ComputeInputOutputSplit(payload)
	return split, v.Replace(split)
}

// Close destroys the live chart, if any.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.handle != nil {
		v.handle.Destroy()
		v.handle = nil
	}
}
