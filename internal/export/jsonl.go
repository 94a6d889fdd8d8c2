package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/orgdash/internal/dashboard"
)

// Record kinds written by the JSONL exporter.
const (
	KindSnapshot   = "snapshot"
	KindMember     = "member"
	KindDatabase   = "database"
	KindInvitation = "invitation"
	KindModelCost  = "model_cost"
	KindStageCost  = "stage_cost"
	KindUserCost   = "user_cost"
)

// JSONLExporter exports snapshots in JSONL format (one record per line). The
// first line describes the snapshot; each following line is one table row.
type JSONLExporter struct{}

type jsonlRecord struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// Export exports a snapshot to JSONL format
func (e *JSONLExporter) Export(snap *dashboard.Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)

	header := map[string]interface{}{
		"session":     snap.Session,
		"permissions": snap.Permissions,
		"loaded_at":   snap.LoadedAt,
	}
	if snap.Overview != nil {
		header["overview"] = snap.Overview
	}
	if snap.CostSummary != nil {
		header["cost_summary"] = snap.CostSummary
	}
	if snap.Split != nil {
		header["input_output"] = snap.Split
	}
	if len(snap.Failures) > 0 {
		header["failures"] = snap.Failures
	}
	if err := enc.Encode(jsonlRecord{Kind: KindSnapshot, Data: header}); err != nil {
		return fmt.Errorf("failed to encode snapshot header: %w", err)
	}

	var records []jsonlRecord
	for _, m := range snap.Members {
		records = append(records, jsonlRecord{KindMember, m})
	}
	for _, db := range snap.Databases {
		records = append(records, jsonlRecord{KindDatabase, db})
	}
	for _, inv := range snap.Invitations {
		records = append(records, jsonlRecord{KindInvitation, inv})
	}
	for _, mc := range snap.ModelCosts {
		records = append(records, jsonlRecord{KindModelCost, mc})
	}
	for _, sc := range snap.StageCosts {
		records = append(records, jsonlRecord{KindStageCost, sc})
	}
	if snap.PerUser != nil {
		for _, uc := range snap.PerUser.Users {
			records = append(records, jsonlRecord{KindUserCost, uc})
		}
	}

	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode %s: %w", rec.Kind, err)
		}
	}
	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
