package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/iksnae/orgdash/internal"
)

// Backend endpoints.
const (
	EndpointLogin             = "/dashboard/login"
	EndpointVerify            = "/dashboard/verify"
	EndpointLogout            = "/dashboard/logout"
	EndpointOverview          = "/dashboard/overview"
	EndpointMembers           = "/dashboard/members"
	EndpointMembersAdd        = "/dashboard/members/add"
	EndpointMembersRemove     = "/dashboard/members/remove"
	EndpointDatabases         = "/dashboard/databases"
	EndpointDatabasesCreate   = "/dashboard/databases/create"
	EndpointDatabasesRemove   = "/dashboard/databases/remove"
	EndpointInvitations       = "/dashboard/invitations"
	EndpointInvitationsCreate = "/dashboard/invitations/create"
	EndpointCostsOverview     = "/dashboard/costs/overview"
	EndpointCostsByModel      = "/dashboard/costs/by-model"
	EndpointCostsByStage      = "/dashboard/costs/by-stage"
	EndpointCostsInputOutput  = "/dashboard/costs/input-output"
	EndpointCostsPerUser      = "/dashboard/costs/per-user"
)

// Result is the {success, message} envelope of mutation endpoints.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func get[T any](ctx context.Context, g *Gateway, endpoint string) (T, error) {
	raw, err := g.Call(ctx, endpoint, http.MethodGet, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](raw, endpoint)
}

func post[T any](ctx context.Context, g *Gateway, endpoint string, body any) (T, error) {
	raw, err := g.Call(ctx, endpoint, http.MethodPost, body)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](raw, endpoint)
}

// Overview fetches organization metadata and counters.
func (g *Gateway) Overview(ctx context.Context) (internal.Overview, error) {
	return get[internal.Overview](ctx, g, EndpointOverview)
}

// Members lists the organization's members in server order.
func (g *Gateway) Members(ctx context.Context) ([]internal.Member, error) {
	resp, err := get[struct {
		Members []internal.Member `json:"members"`
	}](ctx, g, EndpointMembers)
	return resp.Members, err
}

// AddMember adds a user by numeric id.
func (g *Gateway) AddMember(ctx context.Context, userID int64) (Result, error) {
	return post[Result](ctx, g, EndpointMembersAdd, map[string]any{"user_id": userID})
}

// RemoveMember removes a user by numeric id.
func (g *Gateway) RemoveMember(ctx context.Context, userID int64) (Result, error) {
	return post[Result](ctx, g, EndpointMembersRemove, map[string]any{"user_id": userID})
}

// Databases lists registered database connections.
func (g *Gateway) Databases(ctx context.Context) ([]internal.DatabaseConnection, error) {
	resp, err := get[struct {
		Databases []internal.DatabaseConnection `json:"databases"`
	}](ctx, g, EndpointDatabases)
	return resp.Databases, err
}

// CreateDatabase registers a connection string under name.
func (g *Gateway) CreateDatabase(ctx context.Context, name, connectionString string) (Result, error) {
	return post[Result](ctx, g, EndpointDatabasesCreate, map[string]string{
		"name":              name,
		"connection_string": connectionString,
	})
}

// RemoveDatabase deletes a connection by its opaque id.
func (g *Gateway) RemoveDatabase(ctx context.Context, connectionID string) (Result, error) {
	return post[Result](ctx, g, EndpointDatabasesRemove, map[string]string{"connection_id": connectionID})
}

// Invitations lists invitation codes.
func (g *Gateway) Invitations(ctx context.Context) ([]internal.Invitation, error) {
	resp, err := get[struct {
		Invitations []internal.Invitation `json:"invitations"`
	}](ctx, g, EndpointInvitations)
	return resp.Invitations, err
}

// InvitationResult is the /dashboard/invitations/create response.
type InvitationResult struct {
	Result
	Code string `json:"code"`
	Link string `json:"link"`
}

// CreateInvitation issues a code usable maxUses times.
func (g *Gateway) CreateInvitation(ctx context.Context, maxUses int) (InvitationResult, error) {
	return post[InvitationResult](ctx, g, EndpointInvitationsCreate, map[string]int{"max_uses": maxUses})
}

// CostsOverview fetches the organization-wide cost summary.
func (g *Gateway) CostsOverview(ctx context.Context) (internal.CostSummary, error) {
	resp, err := get[struct {
		TotalStats internal.CostSummary `json:"total_stats"`
	}](ctx, g, EndpointCostsOverview)
	return resp.TotalStats, err
}

// CostsByModel fetches per-model cost records.
func (g *Gateway) CostsByModel(ctx context.Context) ([]internal.ModelCost, error) {
	resp, err := get[struct {
		Models []internal.ModelCost `json:"models"`
	}](ctx, g, EndpointCostsByModel)
	return resp.Models, err
}

// CostsByStage fetches per-stage cost records.
func (g *Gateway) CostsByStage(ctx context.Context) ([]internal.StageCost, error) {
	resp, err := get[struct {
		Stages []internal.StageCost `json:"stages"`
	}](ctx, g, EndpointCostsByStage)
	return resp.Stages, err
}

// CostsInputOutput returns the raw split payload. It is left untyped so that
// malformed fields can be coerced instead of failing the decode.
func (g *Gateway) CostsInputOutput(ctx context.Context) (map[string]any, error) {
	raw, err := g.Call(ctx, EndpointCostsInputOutput, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		internal.LogWarn("Malformed input/output payload, using zeros: %v", err)
		return map[string]any{}, nil
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// CostsPerUser fetches per-user cost records with organization totals.
func (g *Gateway) CostsPerUser(ctx context.Context) (internal.PerUserCosts, error) {
	return get[internal.PerUserCosts](ctx, g, EndpointCostsPerUser)
}
