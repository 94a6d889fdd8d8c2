package export

import (
	"time"

	"github.com/iksnae/orgdash/internal/dashboard"
)

// DocumentVersion is bumped when the layout of json and yaml exports changes.
const DocumentVersion = 1

// document is the top level of json and yaml exports.
type document struct {
	Version    int                 `json:"version" yaml:"version"`
	ExportedAt time.Time           `json:"exported_at" yaml:"exported_at"`
	Snapshot   *dashboard.Snapshot `json:"snapshot" yaml:"snapshot"`
}

func newDocument(snap *dashboard.Snapshot) document {
	return document{Version: DocumentVersion, ExportedAt: time.Now().UTC(), Snapshot: snap}
}
