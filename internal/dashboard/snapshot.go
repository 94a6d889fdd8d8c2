package dashboard

import (
	"time"

	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/costs"
	"github.com/iksnae/orgdash/internal/permission"
	"github.com/iksnae/orgdash/internal/session"
)

// SessionInfo is the non-secret part of a session.
type SessionInfo struct {
	Role             session.Role `json:"role" yaml:"role"`
	OrganizationID   string       `json:"organization_id" yaml:"organization_id"`
	OrganizationName string       `json:"organization_name" yaml:"organization_name"`
	UserID           string       `json:"user_id" yaml:"user_id"`
}

func infoOf(s session.Session) SessionInfo {
	return SessionInfo{
		Role:             s.Role,
		OrganizationID:   s.OrganizationID,
		OrganizationName: s.OrganizationName,
		UserID:           s.UserID,
	}
}

// Snapshot is the data last loaded into the dashboard.
type Snapshot struct {
	Session       SessionInfo                   `json:"session" yaml:"session"`
	Permissions   permission.Set                `json:"permissions" yaml:"permissions"`
	Overview      *internal.Overview            `json:"overview,omitempty" yaml:"overview,omitempty"`
	Members       []internal.Member             `json:"members" yaml:"members"`
	Databases     []internal.DatabaseConnection `json:"databases" yaml:"databases"`
	Invitations   []internal.Invitation         `json:"invitations,omitempty" yaml:"invitations,omitempty"`
	CostSummary   *internal.CostSummary         `json:"cost_summary,omitempty" yaml:"cost_summary,omitempty"`
	ModelCosts    []internal.ModelCost          `json:"model_costs,omitempty" yaml:"model_costs,omitempty"`
	StageCosts    []internal.StageCost          `json:"stage_costs,omitempty" yaml:"stage_costs,omitempty"`
	Split         *costs.Split                  `json:"input_output,omitempty" yaml:"input_output,omitempty"`
	PerUser       *internal.PerUserCosts        `json:"per_user,omitempty" yaml:"per_user,omitempty"`
	States        map[Region]RegionState        `json:"states" yaml:"states"`
	Failures      map[Region]string             `json:"failures,omitempty" yaml:"failures,omitempty"`
	Discrepancies []string                      `json:"discrepancies,omitempty" yaml:"discrepancies,omitempty"`
	LoadedAt      time.Time                     `json:"loaded_at" yaml:"loaded_at"`
}

func newSnapshot() Snapshot {
	return Snapshot{Failures: make(map[Region]string)}
}

// Snapshot returns a copy of the loaded data.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.snap
	s.Members = append([]internal.Member(nil), o.snap.Members...)
	s.Databases = append([]internal.DatabaseConnection(nil), o.snap.Databases...)
	s.Invitations = append([]internal.Invitation(nil), o.snap.Invitations...)
	s.ModelCosts = append([]internal.ModelCost(nil), o.snap.ModelCosts...)
	s.StageCosts = append([]internal.StageCost(nil), o.snap.StageCosts...)
	s.Discrepancies = append([]string(nil), o.snap.Discrepancies...)
	s.States = make(map[Region]RegionState, len(o.states))
	for r, st := range o.states {
		s.States[r] = st
	}
	s.Failures = make(map[Region]string, len(o.snap.Failures))
	for r, msg := range o.snap.Failures {
		s.Failures[r] = msg
	}
	return s
}
