package export

import (
	"fmt"
	"io"

	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/dashboard"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(snap *dashboard.Snapshot, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format. The formatter is used by
// formats that render human-readable values.
func NewExporter(format string, f *internal.Formatter) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{Format: f}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json)", format)
	}
}
