// Package dashboard sequences the region loads and user actions of the
// organization dashboard against a rendering surface.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/costs"
	"github.com/iksnae/orgdash/internal/gateway"
	"github.com/iksnae/orgdash/internal/permission"
	"github.com/iksnae/orgdash/internal/session"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Backend is the remote API used by the orchestrator. *gateway.Gateway implements it.
type Backend interface {
	Verify(ctx context.Context) (gateway.Verification, error)
	Overview(ctx context.Context) (internal.Overview, error)
	Members(ctx context.Context) ([]internal.Member, error)
	AddMember(ctx context.Context, userID int64) (gateway.Result, error)
	RemoveMember(ctx context.Context, userID int64) (gateway.Result, error)
	Databases(ctx context.Context) ([]internal.DatabaseConnection, error)
	CreateDatabase(ctx context.Context, name, connectionString string) (gateway.Result, error)
	RemoveDatabase(ctx context.Context, connectionID string) (gateway.Result, error)
	Invitations(ctx context.Context) ([]internal.Invitation, error)
	CreateInvitation(ctx context.Context, maxUses int) (gateway.InvitationResult, error)
	CostsOverview(ctx context.Context) (internal.CostSummary, error)
	CostsByModel(ctx context.Context) ([]internal.ModelCost, error)
	CostsByStage(ctx context.Context) ([]internal.StageCost, error)
	CostsInputOutput(ctx context.Context) (map[string]any, error)
	CostsPerUser(ctx context.Context) (internal.PerUserCosts, error)
}

// Orchestrator loads dashboard regions and performs user actions. All
// effects on the surface are serialized and dropped once the session they
// were started under is gone.
type Orchestrator struct {
	store   *session.Store
	backend Backend
	surface Surface
	applier *permission.Applier
	format  *internal.Formatter
	chart   *costs.View
	flights singleflight.Group
	now     func() time.Time

	mu     sync.Mutex
	states map[Region]RegionState
	snap   Snapshot
}

// New wires an Orchestrator.
func New(store *session.Store, backend Backend, surface Surface, format *internal.Formatter) *Orchestrator {
	return &Orchestrator{
		store:   store,
		backend: backend,
		surface: surface,
		applier: permission.NewApplier(surface),
		format:  format,
		chart:   costs.NewView(surface.NewSplitChart),
		now:     time.Now,
		states:  make(map[Region]RegionState),
		snap:    newSnapshot(),
	}
}

// current returns the live session with freshly derived permissions.
func (o *Orchestrator) current() (session.Session, permission.Set, error) {
	sess, err := o.store.Current()
	if err != nil {
		return session.Session{}, permission.Set{}, err
	}
	return sess, permission.Derive(sess.Role), nil
}

// apply runs fn against the surface if token is still the live session.
func (o *Orchestrator) apply(token string, fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.store.Alive(token) {
		internal.LogDebug("Discarding update for a session that is no longer live")
		return false
	}
	fn()
	return true
}

// Boot runs the page-load sequence: load the stored session, configure
// visibility, verify with the server, then load the dashboard. A missing or
// expired session is returned as session.ErrNoSession.
func (o *Orchestrator) Boot(ctx context.Context) error {
	sess, err := o.Resume()
	if err != nil {
		return err
	}

	v, err := o.backend.Verify(ctx)
	switch {
	case errors.Is(err, gateway.ErrSessionExpired):
		return err
	case err != nil:
		internal.LogWarn("Session verification failed, continuing: %v", err)
	case !v.Valid:
		if o.store.Expire(sess.Token) {
			internal.LogWarn("Server reported the session as invalid")
		}
		return gateway.ErrSessionExpired
	}

	return o.LoadDashboard(ctx)
}

// Resume loads the stored session and configures visibility for its role
// without contacting the server.
func (o *Orchestrator) Resume() (session.Session, error) {
	sess, err := o.store.Load()
	if err != nil {
		return session.Session{}, err
	}
	set := permission.Derive(sess.Role)
	o.apply(sess.Token, func() {
		o.applier.Apply(set, sess.Role)
		o.snap.Session = infoOf(sess)
		o.snap.Permissions = set
	})
	return sess, nil
}

// LoadDashboard loads the overview, then members and databases, then (for
// owners) invitations and the cost views. A failed overview is rendered and
// returned. Other failures stay in their region; only an expired session is
// returned for them.
func (o *Orchestrator) LoadDashboard(ctx context.Context) error {
	sess, set, err := o.current()
	if err != nil {
		return err
	}
	o.apply(sess.Token, func() {
		o.applier.Apply(set, sess.Role)
		o.snap.Session = infoOf(sess)
		o.snap.Permissions = set
	})

	if err := o.LoadRegion(ctx, RegionOverview); err != nil {
		return err
	}

	regions := append([]Region{}, BaseRegions...)
	if Allowed(RegionInvitations, set, sess.Role) {
		regions = append(regions, RegionInvitations)
	}
	if set.CanViewCosts {
		regions = append(regions, CostRegions...)
	}

	var g errgroup.Group
	for _, r := range regions {
		g.Go(func() error {
			if err := o.LoadRegion(ctx, r); errors.Is(err, gateway.ErrSessionExpired) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if set.CanViewCosts {
		o.reconcile(sess.Token)
	}
	o.apply(sess.Token, func() { o.snap.LoadedAt = o.now() })
	return nil
}

// LoadRegion (re)loads one region. Concurrent loads of the same region share
// one request.
func (o *Orchestrator) LoadRegion(ctx context.Context, r Region) error {
	sess, set, err := o.current()
	if err != nil {
		return err
	}
	if !Allowed(r, set, sess.Role) {
		return fmt.Errorf("%w: %s requires the owner role", ErrPermissionDenied, r)
	}

	// Keyed by token so a load started under an earlier session is never shared.
	_, err, _ = o.flights.Do(string(r)+"\x00"+sess.Token, func() (any, error) {
		return nil, o.load(ctx, sess, set, r)
	})
	return err
}

func (o *Orchestrator) load(ctx context.Context, sess session.Session, set permission.Set, r Region) error {
	o.apply(sess.Token, func() { o.states[r] = Loading })

	err := o.fetch(ctx, sess, set, r)
	if err == nil || !gateway.Regional(err) {
		return err
	}

	internal.LogWarn("Loading %s failed: %v", r, err)
	o.apply(sess.Token, func() {
		o.states[r] = Failed
		o.snap.Failures[r] = err.Error()
		o.surface.ShowFailure(r, err)
	})
	return err
}

// loaded records a successful load. o.mu must be held.
func (o *Orchestrator) loaded(r Region) {
	o.states[r] = Loaded
	delete(o.snap.Failures, r)
}

func (o *Orchestrator) fetch(ctx context.Context, sess session.Session, set permission.Set, r Region) error {
	token := sess.Token
	switch r {
	case RegionOverview:
		ov, err := o.backend.Overview(ctx)
		if err != nil {
			return err
		}
		o.apply(token, func() {
			o.snap.Overview = &ov
			o.surface.ShowOverview(sess, ov)
			o.loaded(r)
		})

	case RegionMembers:
		members, err := o.backend.Members(ctx)
		if err != nil {
			return err
		}
		o.apply(token, func() {
			o.snap.Members = members
			o.surface.ShowTable(r, MembersTable(members, set))
			o.loaded(r)
		})

	case RegionDatabases:
		dbs, err := o.backend.Databases(ctx)
		if err != nil {
			return err
		}
		o.apply(token, func() {
			o.snap.Databases = dbs
			o.surface.ShowTable(r, DatabasesTable(dbs, set))
			o.loaded(r)
		})

	case RegionInvitations:
		invs, err := o.backend.Invitations(ctx)
		if err != nil {
			return err
		}
		o.apply(token, func() {
			o.snap.Invitations = invs
			o.surface.ShowTable(r, InvitationsTable(o.format, invs))
			o.loaded(r)
		})

	case RegionCostsOverview:
		summary, err := o.backend.CostsOverview(ctx)
		if err != nil {
			return err
		}
		o.apply(token, func() {
			o.snap.CostSummary = &summary
			o.surface.ShowStats(r, costs.SummaryRows(o.format, summary))
			o.loaded(r)
		})

	case RegionCostsByModel:
		models, err := o.backend.CostsByModel(ctx)
		if err != nil {
			return err
		}
		o.apply(token, func() {
			o.snap.ModelCosts = models
			o.surface.ShowTable(r, costs.ComputeTableRows(o.format, models))
			o.loaded(r)
		})

	case RegionCostsByStage:
		stages, err := o.backend.CostsByStage(ctx)
		if err != nil {
			return err
		}
		o.apply(token, func() {
			o.snap.StageCosts = stages
			o.surface.ShowTable(r, costs.ComputeTableRows(o.format, stages))
			o.loaded(r)
		})

	case RegionCostsSplit:
		payload, err := o.backend.CostsInputOutput(ctx)
		if err != nil {
			return err
		}
		o.apply(token, func() {
			split, err := o.chart.Render(payload)
			o.snap.Split = &split
			o.surface.ShowStats(r, costs.SplitRows(o.format, split))
			if err != nil {
				o.surface.ShowFailure(r, err)
			}
			o.loaded(r)
		})

	case RegionCostsPerUser:
		perUser, err := o.backend.CostsPerUser(ctx)
		if err != nil {
			return err
		}
		o.apply(token, func() {
			o.snap.PerUser = &perUser
			o.surface.ShowStats(r, costs.PerUserStats(o.format, perUser))
			o.surface.ShowTable(r, costs.ComputeTableRows(o.format, perUser.Users))
			o.loaded(r)
		})

	default:
		return fmt.Errorf("unknown region %q", r)
	}
	return nil
}

func (o *Orchestrator) reconcile(token string) {
	o.apply(token, func() {
		var users []internal.UserCost
		if o.snap.PerUser != nil {
			users = o.snap.PerUser.Users
		}
		found := costs.Reconcile(o.snap.CostSummary, o.snap.ModelCosts, o.snap.StageCosts, users)
		o.snap.Discrepancies = o.snap.Discrepancies[:0]
		for _, d := range found {
			o.snap.Discrepancies = append(o.snap.Discrepancies, d.String())
		}
	})
}

// State returns the load state of r.
func (o *Orchestrator) State(r Region) RegionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[r]
}

// Logout invalidates the session and releases the chart.
func (o *Orchestrator) Logout() error {
	o.mu.Lock()
	o.chart.Close()
	o.states = make(map[Region]RegionState)
	o.snap = newSnapshot()
	o.mu.Unlock()
	return o.store.Invalidate()
}

// Close releases surface resources held by the orchestrator.
func (o *Orchestrator) Close() {
	o.chart.Close()
}
