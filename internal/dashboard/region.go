package dashboard

import (
	"fmt"

	"github.com/iksnae/orgdash/internal/permission"
	"github.com/iksnae/orgdash/internal/session"
)

// Region is an independently loadable panel of the dashboard.
type Region string

const (
	RegionOverview      Region = "overview"
	RegionMembers       Region = "members"
	RegionDatabases     Region = "databases"
	RegionInvitations   Region = "invitations"
	RegionCostsOverview Region = "costs-overview"
	RegionCostsByModel  Region = "costs-by-model"
	RegionCostsByStage  Region = "costs-by-stage"
	RegionCostsSplit    Region = "costs-input-output"
	RegionCostsPerUser  Region = "costs-per-user"
)

// BaseRegions are loaded for every role after the overview.
var BaseRegions = []Region{RegionMembers, RegionDatabases}

// CostRegions are the owner-only analytics views.
var CostRegions = []Region{
	RegionCostsOverview,
	RegionCostsByModel,
	RegionCostsByStage,
	RegionCostsSplit,
	RegionCostsPerUser,
}

// AllRegions lists every region in display order.
var AllRegions = []Region{
	RegionOverview,
	RegionMembers,
	RegionDatabases,
	RegionInvitations,
	RegionCostsOverview,
	RegionCostsByModel,
	RegionCostsByStage,
	RegionCostsSplit,
	RegionCostsPerUser,
}

// ParseRegion resolves a region name.
func ParseRegion(name string) (Region, bool) {
	for _, r := range AllRegions {
		if string(r) == name {
			return r, true
		}
	}
	return "", false
}

// IsCost reports whether r is an analytics region.
func (r Region) IsCost() bool {
	for _, c := range CostRegions {
		if c == r {
			return true
		}
	}
	return false
}

// Allowed reports whether a caller with set and role may load r.
func Allowed(r Region, set permission.Set, role session.Role) bool {
	switch {
	case r == RegionInvitations:
		return set.CanManageInvitations && role != session.RoleMember
	case r.IsCost():
		return set.CanViewCosts
	default:
		return true
	}
}

// RegionState is the load state of a region.
type RegionState int

const (
	Idle RegionState = iota
	Loading
	Loaded
	Failed
)

func (s RegionState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText renders the state by name in exported snapshots.
func (s RegionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state written by MarshalText.
func (s *RegionState) UnmarshalText(text []byte) error {
	for _, st := range []RegionState{Idle, Loading, Loaded, Failed} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown region state %q", text)
}
