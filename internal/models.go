package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// InvitationTTL is the fixed validity window of an invitation code.
const InvitationTTL = 24 * time.Hour

// FlexID is an identifier the backend sends either as a JSON number or a string.
type FlexID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if n, ok := raw.(json.Number); ok {
		*id = FlexID(n.String())
		return nil
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = FlexID(s)
	return nil
}

func (id FlexID) String() string {
	return string(id)
}

// Organization is the tenant metadata returned with the overview
type Organization struct {
	ID          FlexID `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   string `json:"created_at" yaml:"created_at"`
}

// OrgStats holds the overview counters
type OrgStats struct {
	MembersCount      int `json:"members_count" yaml:"members_count"`
	DatabasesCount    int `json:"databases_count" yaml:"databases_count"`
	ActiveInvitations int `json:"active_invitations" yaml:"active_invitations"`
}

// OverviewUser describes the caller as the backend sees it
type OverviewUser struct {
	Role     string `json:"role" yaml:"role"`
	Username string `json:"username" yaml:"username"`
	UserID   FlexID `json:"user_id" yaml:"user_id"`
}

// Overview is the /dashboard/overview payload
type Overview struct {
	Org   Organization `json:"org" yaml:"org"`
	Stats OrgStats     `json:"stats" yaml:"stats"`
	User  OverviewUser `json:"user" yaml:"user"`
}

// Member is one organization member
type Member struct {
	UserID   FlexID `json:"user_id" yaml:"user_id"`
	Role     string `json:"role" yaml:"role"`
	JoinedAt string `json:"joined_at" yaml:"joined_at"`
}

// DatabaseConnection is a registered database. ConnectionID is opaque.
type DatabaseConnection struct {
	Name         string `json:"name" yaml:"name"`
	ConnectionID string `json:"connection_id" yaml:"connection_id"`
	CreatedAt    string `json:"created_at" yaml:"created_at"`
	IsActive     bool   `json:"is_active" yaml:"is_active"`
	OwnerType    string `json:"owner_type,omitempty" yaml:"owner_type,omitempty"`
}

// Invitation is an invite code with a usage limit
type Invitation struct {
	Code        string `json:"code" yaml:"code"`
	CurrentUses int    `json:"current_uses" yaml:"current_uses"`
	MaxUses     int    `json:"max_uses" yaml:"max_uses"`
	CreatedAt   string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	ExpiresAt   string `json:"expires_at" yaml:"expires_at"`
	IsActive    bool   `json:"is_active" yaml:"is_active"`
}

// Usage renders the "current/max" usage counter.
func (inv Invitation) Usage() string {
	return fmt.Sprintf("%d/%d", inv.CurrentUses, inv.MaxUses)
}

// CreatedInvitation is the result of /dashboard/invitations/create
type CreatedInvitation struct {
	Code    string `json:"code" yaml:"code"`
	Link    string `json:"link" yaml:"link"`
	MaxUses int    `json:"max_uses" yaml:"max_uses"`
}

// CostTriple is the cost block shared by every cost record shape
type CostTriple struct {
	TotalInputTokens  int64   `json:"total_input_tokens" yaml:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens" yaml:"total_output_tokens"`
	TotalInputCost    float64 `json:"total_input_cost" yaml:"total_input_cost"`
	TotalOutputCost   float64 `json:"total_output_cost" yaml:"total_output_cost"`
	TotalCost         float64 `json:"total_cost" yaml:"total_cost"`
}

// ModelCost is the by-model cost record
type ModelCost struct {
	ModelName  string `json:"model_name" yaml:"model_name"`
	UsageCount int    `json:"usage_count" yaml:"usage_count"`
	CostTriple `yaml:",inline"`
}

// StageCost is the by-stage cost record
type StageCost struct {
	StageName  string `json:"stage_name" yaml:"stage_name"`
	UsageCount int    `json:"usage_count" yaml:"usage_count"`
	CostTriple `yaml:",inline"`
}

// UserCost is the per-user cost record
type UserCost struct {
	UserID             FlexID `json:"user_id" yaml:"user_id"`
	Username           string `json:"username" yaml:"username"`
	ConversationsCount int    `json:"conversations_count" yaml:"conversations_count"`
	CostTriple         `yaml:",inline"`
}

// CostSummary is the organization-wide cost snapshot
type CostSummary struct {
	TotalCost          float64 `json:"total_cost" yaml:"total_cost"`
	TotalInputTokens   int64   `json:"total_input_tokens" yaml:"total_input_tokens"`
	TotalOutputTokens  int64   `json:"total_output_tokens" yaml:"total_output_tokens"`
	TotalConversations int     `json:"total_conversations" yaml:"total_conversations"`
}

// PerUserCosts is the /dashboard/costs/per-user payload
type PerUserCosts struct {
	Users              []UserCost `json:"users" yaml:"users"`
	TotalOrgCost       float64    `json:"total_org_cost" yaml:"total_org_cost"`
	AverageCostPerUser float64    `json:"average_cost_per_user" yaml:"average_cost_per_user"`
	TotalUsers         int        `json:"total_users" yaml:"total_users"`
}

// DatePart returns the calendar-date prefix of a backend timestamp, or "-" when empty.
func DatePart(ts string) string {
	if ts == "" {
		return "-"
	}
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the ISO-8601 variants the backend emits. Timestamps
// without an offset are taken as UTC.
func ParseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
