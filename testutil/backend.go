package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cast"
)

// Call is one request received by the FakeBackend.
type Call struct {
	Method    string
	Path      string
	Auth      string
	RequestID string
	Body      map[string]any
}

// FakeBackend is a stateful in-process stand-in for the dashboard API.
type FakeBackend struct {
	Server *httptest.Server

	mu          sync.Mutex
	calls       []Call
	overrides   map[string]http.HandlerFunc
	tokens      map[string]string
	members     []map[string]any
	databases   []map[string]any
	invitations []map[string]any
	nextID      int

	Models      []map[string]any
	Stages      []map[string]any
	Users       []map[string]any
	InputOutput map[string]any
	Summary     map[string]any
}

// NewFakeBackend starts a backend seeded with the Acme organization. It is
// closed when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{
		overrides: make(map[string]http.HandlerFunc),
		tokens:    map[string]string{OwnerToken: "owner", MemberToken: "member"},
		members: []map[string]any{
			{"user_id": 7, "role": "owner", "joined_at": "2025-01-10T09:00:00"},
			{"user_id": 8, "role": "member", "joined_at": "2025-01-12T14:30:00"},
		},
		databases: []map[string]any{
			{"connection_id": "conn_1", "name": "analytics", "created_at": "2025-01-11T10:00:00", "is_active": true, "owner_type": "organization"},
		},
		invitations: []map[string]any{},
		nextID:      2,
		Models:      DefaultModels(),
		Stages:      DefaultStages(),
		Users:       DefaultUsers(),
		InputOutput: map[string]any{
			"input_cost": 0.33, "output_cost": 0.33, "total_cost": 0.66,
			"input_percentage": 50.0, "output_percentage": 50.0,
		},
		Summary: map[string]any{
			"total_cost": 0.66, "total_input_tokens": 320000,
			"total_output_tokens": 80000, "total_conversations": 14,
		},
	}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the backend base URL.
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// Handle overrides the handler of path.
func (fb *FakeBackend) Handle(path string, h http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.overrides[path] = h
}

// Fail makes path answer with status and a {detail} body.
func (fb *FakeBackend) Fail(path string, status int, detail string) {
	fb.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, map[string]any{"detail": detail})
	})
}

// Revoke makes the backend reject token with 401 from now on.
func (fb *FakeBackend) Revoke(token string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	delete(fb.tokens, token)
}

// SetMembers replaces the member list.
func (fb *FakeBackend) SetMembers(members []map[string]any) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.members = members
}

// Calls returns every request received so far.
func (fb *FakeBackend) Calls() []Call {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]Call(nil), fb.calls...)
}

// Paths returns the path of every request received so far.
func (fb *FakeBackend) Paths() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	paths := make([]string, len(fb.calls))
	for i, c := range fb.calls {
		paths[i] = c.Path
	}
	return paths
}

// Count returns how many requests hit path.
func (fb *FakeBackend) Count(path string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.calls {
		if c.Path == path {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded requests.
func (fb *FakeBackend) ResetCalls() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.calls = nil
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (fb *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	call := Call{
		Method:    r.Method,
		Path:      r.URL.Path,
		Auth:      r.Header.Get("Authorization"),
		RequestID: r.Header.Get("X-Request-ID"),
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
	}

	fb.mu.Lock()
	fb.calls = append(fb.calls, call)
	override := fb.overrides[call.Path]
	fb.mu.Unlock()

	if override != nil {
		override(w, r)
		return
	}

	if call.Path == "/dashboard/login" {
		fb.login(w, call)
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()

	token := strings.TrimPrefix(call.Auth, "Bearer ")
	role, ok := fb.tokens[token]
	if !ok || call.Auth == token {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid or expired token"})
		return
	}
	if strings.HasPrefix(call.Path, "/dashboard/costs/") || strings.HasPrefix(call.Path, "/dashboard/invitations") ||
		strings.HasSuffix(call.Path, "/add") || strings.HasSuffix(call.Path, "/remove") || strings.HasSuffix(call.Path, "/create") {
		if role != "owner" {
			WriteJSON(w, http.StatusForbidden, map[string]any{"detail": "Only the organization owner can do this"})
			return
		}
	}

	switch call.Path {
	case "/dashboard/verify":
		WriteJSON(w, http.StatusOK, map[string]any{"valid": true, "role": role, "org_id": 1, "username": usernameFor(role)})
	case "/dashboard/logout":
		delete(fb.tokens, token)
		WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	case "/dashboard/overview":
		fb.overview(w, role)
	case "/dashboard/members":
		WriteJSON(w, http.StatusOK, map[string]any{"members": fb.members})
	case "/dashboard/members/add":
		fb.addMember(w, call.Body)
	case "/dashboard/members/remove":
		fb.removeMember(w, call.Body)
	case "/dashboard/databases":
		WriteJSON(w, http.StatusOK, map[string]any{"databases": fb.databases, "count": len(fb.databases), "can_manage": role == "owner"})
	case "/dashboard/databases/create":
		fb.createDatabase(w, call.Body)
	case "/dashboard/databases/remove":
		fb.removeDatabase(w, call.Body)
	case "/dashboard/invitations":
		WriteJSON(w, http.StatusOK, map[string]any{"invitations": fb.invitations})
	case "/dashboard/invitations/create":
		fb.createInvitation(w, call.Body)
	case "/dashboard/costs/overview":
		WriteJSON(w, http.StatusOK, map[string]any{"success": true, "total_stats": fb.Summary})
	case "/dashboard/costs/by-model":
		WriteJSON(w, http.StatusOK, map[string]any{"models": fb.Models})
	case "/dashboard/costs/by-stage":
		WriteJSON(w, http.StatusOK, map[string]any{"stages": fb.Stages})
	case "/dashboard/costs/input-output":
		WriteJSON(w, http.StatusOK, fb.InputOutput)
	case "/dashboard/costs/per-user":
		total := 0.0
		for _, u := range fb.Users {
			total += cast.ToFloat64(u["total_cost"])
		}
		avg := 0.0
		if len(fb.Users) > 0 {
			avg = total / float64(len(fb.Users))
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"users": fb.Users, "total_org_cost": total, "average_cost_per_user": avg, "total_users": len(fb.Users),
		})
	default:
		WriteJSON(w, http.StatusNotFound, map[string]any{"detail": "Not Found"})
	}
}

func usernameFor(role string) string {
	if role == "owner" {
		return OwnerUsername
	}
	return MemberUsername
}

func (fb *FakeBackend) login(w http.ResponseWriter, call Call) {
	username := cast.ToString(call.Body["username"])
	password := cast.ToString(call.Body["password"])
	if password != Password || (username != OwnerUsername && username != MemberUsername) {
		WriteJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid username or password"})
		return
	}
	if username == OwnerUsername {
		WriteJSON(w, http.StatusOK, map[string]any{
			"success": true, "message": "Login successful", "token": OwnerToken,
			"role": "owner", "org_id": 1, "org_name": "Acme", "user_id": 7,
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true, "message": "Login successful", "token": MemberToken,
		"role": "member", "org_id": "1", "org_name": "Acme", "user_id": "8",
	})
}

func (fb *FakeBackend) overview(w http.ResponseWriter, role string) {
	active := 0
	for _, inv := range fb.invitations {
		if cast.ToBool(inv["is_active"]) {
			active++
		}
	}
	userID := 8
	if role == "owner" {
		userID = 7
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"org": map[string]any{"id": 1, "name": "Acme", "description": "Acme analytics", "created_at": "2025-01-10T09:00:00"},
		"stats": map[string]any{
			"members_count":      len(fb.members),
			"databases_count":    len(fb.databases),
			"active_invitations": active,
		},
		"user":        map[string]any{"role": role, "username": usernameFor(role), "user_id": userID},
		"permissions": map[string]any{"is_owner": role == "owner", "is_member": role == "member"},
	})
}

func (fb *FakeBackend) addMember(w http.ResponseWriter, body map[string]any) {
	id := cast.ToInt(body["user_id"])
	for _, m := range fb.members {
		if cast.ToInt(m["user_id"]) == id {
			WriteJSON(w, http.StatusOK, map[string]any{"success": false, "message": "User is already a member"})
			return
		}
	}
	fb.members = append(fb.members, map[string]any{
		"user_id": id, "role": "member", "joined_at": time.Now().UTC().Format("2006-01-02T15:04:05"),
	})
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Member added"})
}

func (fb *FakeBackend) removeMember(w http.ResponseWriter, body map[string]any) {
	id := cast.ToInt(body["user_id"])
	for i, m := range fb.members {
		if cast.ToInt(m["user_id"]) != id {
			continue
		}
		if m["role"] == "owner" {
			WriteJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Cannot remove the organization owner"})
			return
		}
		fb.members = append(fb.members[:i], fb.members[i+1:]...)
		WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Member removed"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Member not found"})
}

func (fb *FakeBackend) createDatabase(w http.ResponseWriter, body map[string]any) {
	name := cast.ToString(body["name"])
	if name == "" || cast.ToString(body["connection_string"]) == "" {
		WriteJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Name and connection string are required"})
		return
	}
	fb.nextID++
	fb.databases = append(fb.databases, map[string]any{
		"connection_id": fmt.Sprintf("conn_%d", fb.nextID),
		"name":          name,
		"created_at":    time.Now().UTC().Format("2006-01-02T15:04:05"),
		"is_active":     true,
		"owner_type":    "organization",
	})
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Database registered"})
}

func (fb *FakeBackend) removeDatabase(w http.ResponseWriter, body map[string]any) {
	id := cast.ToString(body["connection_id"])
	for i, db := range fb.databases {
		if db["connection_id"] == id {
			fb.databases = append(fb.databases[:i], fb.databases[i+1:]...)
			WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Database removed"})
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Database not found"})
}

func (fb *FakeBackend) createInvitation(w http.ResponseWriter, body map[string]any) {
	maxUses := cast.ToInt(body["max_uses"])
	if maxUses < 1 {
		WriteJSON(w, http.StatusOK, map[string]any{"success": false, "message": "max_uses must be at least 1"})
		return
	}
	fb.nextID++
	code := fmt.Sprintf("INV%04d", fb.nextID)
	now := time.Now().UTC()
	fb.invitations = append(fb.invitations, map[string]any{
		"code":         code,
		"created_at":   now.Format("2006-01-02T15:04:05"),
		"expires_at":   now.Add(24 * time.Hour).Format("2006-01-02T15:04:05"),
		"max_uses":     maxUses,
		"current_uses": 0,
		"is_active":    true,
	})
	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"code":    code,
		"link":    "https://yoursite.com/join/" + code,
	})
}
