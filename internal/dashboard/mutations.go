package dashboard

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/gateway"
	"github.com/iksnae/orgdash/internal/permission"
	"github.com/iksnae/orgdash/internal/session"
)

// authorize returns the live session if check passes for its permissions.
func (o *Orchestrator) authorize(action string, check func(permission.Set, session.Role) bool) (session.Session, permission.Set, error) {
	sess, set, err := o.current()
	if err != nil {
		return session.Session{}, permission.Set{}, err
	}
	if !check(set, sess.Role) {
		internal.LogDebug("Rejected %s for role %q without contacting the server", action, sess.Role)
		return session.Session{}, permission.Set{}, &MutationError{
			Action:  action,
			Message: "you do not have permission to do this",
			Err:     ErrPermissionDenied,
		}
	}
	return sess, set, nil
}

// outcome converts a mutation response into the error shown to the user.
func outcome(action string, res gateway.Result, err error) error {
	if err != nil {
		if !gateway.Regional(err) || errors.Is(err, gateway.ErrUnauthenticated) {
			return err
		}
		msg := err.Error()
		var failed *gateway.RequestFailedError
		if errors.As(err, &failed) {
			msg = failed.Message
		}
		var netErr *gateway.NetworkError
		if errors.As(err, &netErr) {
			msg = "could not reach the server"
		}
		return &MutationError{Action: action, Message: msg, Err: err}
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "the server rejected the request"
		}
		return &MutationError{Action: action, Message: msg}
	}
	return nil
}

// reload refreshes a region after a successful mutation. Only an expired
// session is reported; other failures are already shown in the region.
func (o *Orchestrator) reload(ctx context.Context, r Region) error {
	if err := o.LoadRegion(ctx, r); errors.Is(err, gateway.ErrSessionExpired) {
		return err
	}
	return nil
}

func (o *Orchestrator) notice(token, msg string) {
	o.apply(token, func() { o.surface.ShowNotice(msg) })
}

func parseUserID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid("user id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("user id %q is not a positive number", raw)
	}
	return id, nil
}

func canManageMembers(set permission.Set, _ session.Role) bool { return set.CanManageMembers }
func canManageDatabases(set permission.Set, _ session.Role) bool { return set.CanManageDatabases }

// AddMember adds userID to the organization and reloads the members region.
func (o *Orchestrator) AddMember(ctx context.Context, userID string) error {
	const action = "add member"
	sess, _, err := o.authorize(action, canManageMembers)
	if err != nil {
		return err
	}
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}

	res, err := o.backend.AddMember(ctx, id)
	if err := outcome(action, res, err); err != nil {
		return err
	}
	o.notice(sess.Token, messageOr(res.Message, "Member added"))
	return o.reload(ctx, RegionMembers)
}

// RemoveMember removes userID from the organization and reloads the members region.
func (o *Orchestrator) RemoveMember(ctx context.Context, userID string) error {
	const action = "remove member"
	sess, _, err := o.authorize(action, canManageMembers)
	if err != nil {
		return err
	}
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}

	res, err := o.backend.RemoveMember(ctx, id)
	if err := outcome(action, res, err); err != nil {
		return err
	}
	o.notice(sess.Token, messageOr(res.Message, "Member removed"))
	return o.reload(ctx, RegionMembers)
}

// CreateDatabase registers a connection and reloads the databases region.
func (o *Orchestrator) CreateDatabase(ctx context.Context, name, connectionString string) error {
	const action = "create database"
	sess, _, err := o.authorize(action, canManageDatabases)
	if err != nil {
		return err
	}
	name, connectionString = strings.TrimSpace(name), strings.TrimSpace(connectionString)
	if name == "" || connectionString == "" {
		return invalid("name and connection string are required")
	}

	res, err := o.backend.CreateDatabase(ctx, name, connectionString)
	if err := outcome(action, res, err); err != nil {
		return err
	}
	o.notice(sess.Token, messageOr(res.Message, "Database created"))
	return o.reload(ctx, RegionDatabases)
}

// RemoveDatabase deletes a connection and reloads the databases region.
func (o *Orchestrator) RemoveDatabase(ctx context.Context, connectionID string) error {
	const action = "remove database"
	sess, _, err := o.authorize(action, canManageDatabases)
	if err != nil {
		return err
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return invalid("connection id is required")
	}

	res, err := o.backend.RemoveDatabase(ctx, connectionID)
	if err := outcome(action, res, err); err != nil {
		return err
	}
	o.notice(sess.Token, messageOr(res.Message, "Database removed"))
	return o.reload(ctx, RegionDatabases)
}

// CreateInvitation issues a code usable maxUses times, shows it, and reloads
// the invitations region.
func (o *Orchestrator) CreateInvitation(ctx context.Context, maxUses int) (internal.CreatedInvitation, error) {
	const action = "create invitation"
	sess, _, err := o.authorize(action, func(set permission.Set, role session.Role) bool {
		return Allowed(RegionInvitations, set, role)
	})
	if err != nil {
		return internal.CreatedInvitation{}, err
	}
	if maxUses < 1 {
		return internal.CreatedInvitation{}, invalid("max uses must be at least 1")
	}

	res, err := o.backend.CreateInvitation(ctx, maxUses)
	if err := outcome(action, res.Result, err); err != nil {
		return internal.CreatedInvitation{}, err
	}

	created := internal.CreatedInvitation{Code: res.Code, Link: res.Link, MaxUses: maxUses}
	o.apply(sess.Token, func() { o.surface.ShowInvitationCreated(created) })
	return created, o.reload(ctx, RegionInvitations)
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
