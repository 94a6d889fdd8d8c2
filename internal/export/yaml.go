package export

import (
	"io"

	"github.com/iksnae/orgdash/internal/dashboard"
	"gopkg.in/yaml.v3"
)

// YAMLExporter writes the snapshot as one yaml document.
type YAMLExporter struct{}

// Export exports a snapshot to YAML format
func (e *YAMLExporter) Export(snap *dashboard.Snapshot, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(snap)); err != nil {
		return err
	}
	return enc.Close()
}

// Extension returns the file extension for YAML files
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
