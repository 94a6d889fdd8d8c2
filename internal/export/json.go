package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/orgdash/internal/dashboard"
)

// JSONExporter writes the snapshot as one pretty-printed document.
type JSONExporter struct{}

// Export exports a snapshot to JSON format
func (e *JSONExporter) Export(snap *dashboard.Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newDocument(snap))
}

// Extension returns the file extension for JSON files
func (e *JSONExporter) Extension() string {
	return "json"
}
