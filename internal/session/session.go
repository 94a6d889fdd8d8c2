// Package session owns the authenticated session: loading it from local
// storage, detecting expiry, and tearing it down on logout or rejection.
package session

import (
	"errors"
	"time"
)

// Role is the caller's role inside the organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Known reports whether r is one of the roles the dashboard understands.
func (r Role) Known() bool {
	return r == RoleOwner || r == RoleMember
}

// Label returns a display label for the role.
func (r Role) Label() string {
	switch r {
	case RoleOwner:
		return "Owner"
	case RoleMember:
		return "Member"
	default:
		return "Unknown"
	}
}

// DefaultTTL mirrors the backend's session lifetime.
const DefaultTTL = 24 * time.Hour

var (
	// ErrNoSession means no credential is stored; the user must log in.
	ErrNoSession = errors.New("no session")
	// ErrExpired accompanies ErrNoSession when a stored session outlived its TTL.
	ErrExpired = errors.New("session expired")
)

// Session is the authenticated identity and tenant context of the client.
type Session struct {
	Token            string
	Role             Role
	OrganizationID   string
	OrganizationName string
	UserID           string
	IssuedAt         time.Time
}

// ExpiresAt returns when the session lapses for the given ttl.
func (s Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.IssuedAt.Add(ttl)
}

// Persisted keys, written and cleared as one group.
const (
	KeyToken          = "auth_token"
	KeyRole           = "user_role"
	KeyOrgID          = "org_id"
	KeyOrgName        = "org_name"
	KeyUserID         = "user_id"
	KeyLoginTimestamp = "login_timestamp"
)

// Keys lists every persisted key.
var Keys = []string{KeyToken, KeyRole, KeyOrgID, KeyOrgName, KeyUserID, KeyLoginTimestamp}

func (s Session) values() map[string]string {
	return map[string]string{
		KeyToken:          s.Token,
		KeyRole:           string(s.Role),
		KeyOrgID:          s.OrganizationID,
		KeyOrgName:        s.OrganizationName,
		KeyUserID:         s.UserID,
		KeyLoginTimestamp: s.IssuedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromValues(values map[string]string) (Session, bool) {
	token := values[KeyToken]
	if token == "" {
		return Session{}, false
	}
	sess := Session{
		Token:            token,
		Role:             Role(values[KeyRole]),
		OrganizationID:   values[KeyOrgID],
		OrganizationName: values[KeyOrgName],
		UserID:           values[KeyUserID],
	}
	if ts, err := time.Parse(time.RFC3339Nano, values[KeyLoginTimestamp]); err == nil {
		sess.IssuedAt = ts
	}
	return sess, true
}
