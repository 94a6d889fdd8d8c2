package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/dashboard"
	"github.com/iksnae/orgdash/internal/gateway"
	"github.com/iksnae/orgdash/internal/render"
	"github.com/iksnae/orgdash/internal/session"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// errNotLoggedIn is returned by commands that need a stored session.
var errNotLoggedIn = errors.New("not logged in: run `orgdash login` first")

// app is the per-invocation wiring of store, gateway, surface and orchestrator.
type app struct {
	out       io.Writer
	format    *internal.Formatter
	persister *session.SQLitePersister
	store     *session.Store
	gateway   *gateway.Gateway
	terminal  *render.Terminal
	orch      *dashboard.Orchestrator
	cache     *internal.CacheManager
}

func newApp(cmd *cobra.Command) (*app, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	persister, err := session.OpenSQLitePersister(cfg.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	a := &app{
		out:       cmd.OutOrStdout(),
		format:    internal.NewFormatter(cfg.Locale),
		persister: persister,
		cache:     internal.NewCacheManager(cfg.CacheDir),
	}
	a.store = session.NewStore(persister,
		session.WithTTL(cfg.SessionTTL),
		session.WithLogoutTimeout(cfg.LogoutTimeout),
	)
	a.gateway, err = gateway.New(cfg.BaseURL, a.store,
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithRedirector(gateway.RedirectFunc(a.redirect)),
		gateway.WithUserAgent("orgdash/"+version),
	)
	if err != nil {
		_ = persister.Close()
		return nil, err
	}
	a.terminal = render.NewTerminal(a.out, a.format)
	a.orch = dashboard.New(a.store, a.gateway, a.terminal, a.format)
	return a, nil
}

// redirect is the terminal equivalent of sending the user to the login page.
func (a *app) redirect(reason error) {
	internal.LogDebug("Session ended: %v", reason)
	if err := a.cache.ClearCache(); err != nil {
		internal.LogWarn("Failed to clear cache: %v", err)
	}
	internal.PrintWarning("Your session has expired. Run `orgdash login` to sign in again.")
}

// close waits briefly for background logouts and releases the session database.
func (a *app) close() {
	a.orch.Close()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.LogoutTimeout+time.Second)
	defer cancel()
	if err := a.store.Drain(ctx); err != nil {
		internal.LogDebug("Remote logout still pending: %v", err)
	}
	if err := a.persister.Close(); err != nil {
		internal.LogWarn("Failed to close session store: %v", err)
	}
}

// resume restores the stored session and configures visibility for it.
func (a *app) resume() (session.Session, error) {
	sess, err := a.orch.Resume()
	if errors.Is(err, session.ErrNoSession) {
		if errors.Is(err, session.ErrExpired) {
			return session.Session{}, fmt.Errorf("session expired: run `orgdash login` to sign in again")
		}
		return session.Session{}, errNotLoggedIn
	}
	return sess, err
}

// cacheKey identifies the organization's cached snapshot.
func cacheKey(info dashboard.SessionInfo) string {
	if info.OrganizationID != "" {
		return info.OrganizationID
	}
	return "default"
}

// saveSnapshot caches the last loaded dashboard. Failures are only logged.
func (a *app) saveSnapshot() {
	if _, err := a.store.Current(); err != nil {
		return
	}
	snap := a.orch.Snapshot()
	entry := internal.SnapshotIndexEntry{
		Key:              cacheKey(snap.Session),
		OrganizationName: snap.Session.OrganizationName,
		Role:             string(snap.Session.Role),
		LoadedAt:         snap.LoadedAt,
		Failures:         len(snap.Failures),
	}
	if err := a.cache.SaveSnapshot(entry, snap); err != nil {
		internal.LogWarn("Failed to cache snapshot: %v", err)
	}
}

// withApp builds the app for cmd, runs fn and releases the app.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}
