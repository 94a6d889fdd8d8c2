package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/dashboard"
	"github.com/iksnae/orgdash/testutil"
	"github.com/spf13/cobra"
)

// cli runs commands against a fake backend with an isolated config.
type cli struct {
	t       *testing.T
	backend *testutil.FakeBackend
	dir     string
	config  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`base_url: %s
session_db: %s
cache_dir: %s
logout_timeout: 1s
log_level: error
`, backend.URL(), filepath.Join(dir, "session.db"), filepath.Join(dir, "cache"))
	if err := os.WriteFile(config, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return &cli{t: t, backend: backend, dir: dir, config: config}
}

// run executes one command and returns everything it printed.
func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	resetCommandState()

	var out bytes.Buffer
	prevOut, prevErr := internal.Stdout, internal.Stderr
	internal.Stdout, internal.Stderr = &out, &out
	defer func() { internal.Stdout, internal.Stderr = prevOut, prevErr }()

	rootCmd.SetArgs(append([]string{"--config", c.config}, args...))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	err := rootCmd.Execute()
	return out.String(), err
}

func (c *cli) login(username string) {
	c.t.Helper()
	if out, err := c.run("login", "-u", username, "-p", testutil.Password); err != nil {
		c.t.Fatalf("login as %s failed: %v\n%s", username, err, out)
	}
}

// resetCommandState restores flag variables between Execute calls; cobra
// keeps parsed values on the package-level commands.
func resetCommandState() {
	verbose, configFile = false, ""
	loginUsername, loginPassword = "", ""
	dashboardRegions = nil
	statusDetails = false
	maxUses = 1
	format, outputDir, useCache, maxAge = "json", "./exports", false, 15*time.Minute
	resetBuiltinFlags(rootCmd)
}

func resetBuiltinFlags(c *cobra.Command) {
	for _, name := range []string{"help", "version"} {
		if f := c.Flags().Lookup(name); f != nil {
			_ = f.Value.Set("false")
			f.Changed = false
		}
	}
	for _, sub := range c.Commands() {
		resetBuiltinFlags(sub)
	}
}

func TestLoginCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		stdin    string
		wantErr  string
		contains string
	}{
		{
			name:     "owner with flags",
			args:     []string{"login", "-u", testutil.OwnerUsername, "-p", testutil.Password},
			contains: "Logged in to Acme as Owner",
		},
		{
			name:     "member with prompts",
			args:     []string{"login"},
			stdin:    testutil.MemberUsername + "\n" + testutil.Password + "\n",
			contains: "Logged in to Acme as Member",
		},
		{
			name:    "wrong password",
			args:    []string{"login", "-u", testutil.OwnerUsername, "-p", "nope"},
			wantErr: "login failed: Invalid username or password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCLI(t)
			resetCommandState()
			var out bytes.Buffer
			prevOut, prevErr := internal.Stdout, internal.Stderr
			internal.Stdout, internal.Stderr = &out, &out
			defer func() { internal.Stdout, internal.Stderr = prevOut, prevErr }()

			rootCmd.SetArgs(append([]string{"--config", c.config}, tt.args...))
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetIn(strings.NewReader(tt.stdin))
			err := rootCmd.Execute()

			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("login error = %v\n%s", err, out.String())
			}
			if !strings.Contains(out.String(), tt.contains) {
				t.Errorf("output missing %q:\n%s", tt.contains, out.String())
			}
		})
	}
}

func TestStatusCommand(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, "Not logged in") {
		t.Errorf("status without a session should say so:\n%s", out)
	}

	c.login(testutil.MemberUsername)
	out, err = c.run("status", "--details")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	for _, want := range []string{"Session found", "Role: Member", "Session is valid", "Username: bob", "View costs"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestDashboardCommand_Owner(t *testing.T) {
	c := newCLI(t)
	c.login(testutil.OwnerUsername)

	out, err := c.run("dashboard")
	if err != nil {
		t.Fatalf("dashboard error = %v\n%s", err, out)
	}
	for _, want := range []string{"Acme", "Members", "analytics", "Create an invitation", "Costs by Model", "gpt-4o", "Costs per User"} {
		if !strings.Contains(out, want) {
			t.Errorf("owner dashboard missing %q:\n%s", want, out)
		}
	}
}

func TestDashboardCommand_MemberHidesRestricted(t *testing.T) {
	c := newCLI(t)
	c.login(testutil.MemberUsername)

	out, err := c.run("dashboard")
	if err != nil {
		t.Fatalf("dashboard error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "analytics") {
		t.Errorf("member dashboard should list databases:\n%s", out)
	}
	for _, hidden := range []string{"Create an invitation", "Costs by Model", "orgdash members add"} {
		if strings.Contains(out, hidden) {
			t.Errorf("member dashboard shows %q:\n%s", hidden, out)
		}
	}
	for _, path := range c.backend.Paths() {
		if strings.HasPrefix(path, "/dashboard/costs/") || strings.HasPrefix(path, "/dashboard/invitations") {
			t.Errorf("member dashboard requested %s", path)
		}
	}
}

func TestDashboardCommand_Regions(t *testing.T) {
	c := newCLI(t)
	c.login(testutil.OwnerUsername)

	out, err := c.run("dashboard", "--region", "databases")
	if err != nil {
		t.Fatalf("dashboard error = %v", err)
	}
	if !strings.Contains(out, "analytics") || strings.Contains(out, "Costs by Model") {
		t.Errorf("--region databases printed the wrong regions:\n%s", out)
	}

	if _, err := c.run("dashboard", "--region", "payroll"); err == nil {
		t.Error("unknown region should fail")
	}
}

func TestDashboardCommand_NotLoggedIn(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("dashboard")
	if !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("error = %v, want errNotLoggedIn", err)
	}
	if n := len(c.backend.Calls()); n != 0 {
		t.Errorf("no request should be sent without a session, got %d", n)
	}
}

func TestDashboardCommand_RevokedSession(t *testing.T) {
	c := newCLI(t)
	c.login(testutil.OwnerUsername)
	c.backend.Revoke(testutil.OwnerToken)

	out, err := c.run("dashboard")
	if err == nil {
		t.Fatal("dashboard with a revoked session should fail")
	}
	if got := strings.Count(out, "Your session has expired"); got != 1 {
		t.Errorf("expected one expiry warning, got %d:\n%s", got, out)
	}

	_, err = c.run("members", "list")
	if !errors.Is(err, errNotLoggedIn) {
		t.Errorf("session should be cleared after the rejection, got %v", err)
	}
}

func TestMemberCommands(t *testing.T) {
	c := newCLI(t)
	c.login(testutil.OwnerUsername)

	out, err := c.run("members", "add", "42")
	if err != nil {
		t.Fatalf("members add error = %v", err)
	}
	if !strings.Contains(out, "Member added") || !strings.Contains(out, "42") {
		t.Errorf("members add output:\n%s", out)
	}

	_, err = c.run("members", "add", "42")
	if err == nil || !strings.Contains(err.Error(), "User is already a member") {
		t.Errorf("duplicate add error = %v", err)
	}

	_, err = c.run("members", "add", "forty-two")
	if err == nil {
		t.Error("non-numeric user id should fail")
	}

	if _, err := c.run("members", "remove", "42"); err != nil {
		t.Fatalf("members remove error = %v", err)
	}
	out, err = c.run("members", "list")
	if err != nil {
		t.Fatalf("members list error = %v", err)
	}
	if strings.Contains(out, "42") {
		t.Errorf("removed member still listed:\n%s", out)
	}
}

func TestDatabaseCommands(t *testing.T) {
	c := newCLI(t)
	c.login(testutil.OwnerUsername)

	out, err := c.run("db", "create", "warehouse", "postgres://db/warehouse")
	if err != nil {
		t.Fatalf("databases create error = %v", err)
	}
	if !strings.Contains(out, "warehouse") {
		t.Errorf("created database not listed:\n%s", out)
	}

	if _, err := c.run("databases", "remove", "conn_1"); err != nil {
		t.Fatalf("databases remove error = %v", err)
	}
	out, err = c.run("databases", "list")
	if err != nil {
		t.Fatalf("databases list error = %v", err)
	}
	if strings.Contains(out, "analytics") {
		t.Errorf("removed database still listed:\n%s", out)
	}
}

func TestInvitationCommands(t *testing.T) {
	c := newCLI(t)
	c.login(testutil.OwnerUsername)

	out, err := c.run("invitations", "create", "--max-uses", "5")
	if err != nil {
		t.Fatalf("invitations create error = %v", err)
	}
	for _, want := range []string{"INV", "5", "24 hours", "/join/"} {
		if !strings.Contains(out, want) {
			t.Errorf("invitation output missing %q:\n%s", want, out)
		}
	}
	for _, call := range c.backend.Calls() {
		if call.Path == "/dashboard/invitations/create" && fmt.Sprint(call.Body["max_uses"]) != "5" {
			t.Errorf("max_uses sent as %v, want 5", call.Body["max_uses"])
		}
	}
	if n := c.backend.Count("/dashboard/invitations/create"); n != 1 {
		t.Errorf("create called %d times, want 1", n)
	}

	if _, err := c.run("invitations", "create", "--max-uses", "0"); err == nil {
		t.Error("max-uses 0 should be rejected")
	}
}

func TestOwnerOnlyCommands_Member(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"add member", []string{"members", "add", "42"}},
		{"create database", []string{"databases", "create", "x", "postgres://x"}},
		{"create invitation", []string{"invitations", "create"}},
		{"costs", []string{"costs"}},
	}

	c := newCLI(t)
	c.login(testutil.MemberUsername)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.backend.ResetCalls()
			_, err := c.run(tt.args...)
			if !errors.Is(err, dashboard.ErrPermissionDenied) {
				t.Fatalf("error = %v, want ErrPermissionDenied", err)
			}
			for _, path := range c.backend.Paths() {
				if path != "/dashboard/logout" {
					t.Errorf("denied action sent %s", path)
				}
			}
		})
	}
}

func TestCostsCommand(t *testing.T) {
	c := newCLI(t)
	c.login(testutil.OwnerUsername)

	out, err := c.run("costs")
	if err != nil {
		t.Fatalf("costs error = %v", err)
	}
	for _, want := range []string{"Cost Overview", "Costs by Stage", "Input / Output Costs", "50"} {
		if !strings.Contains(out, want) {
			t.Errorf("costs output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Members") {
		t.Errorf("costs should not print the members region:\n%s", out)
	}
}

func TestLogoutCommand(t *testing.T) {
	c := newCLI(t)
	c.login(testutil.OwnerUsername)
	if _, err := c.run("dashboard"); err != nil {
		t.Fatalf("dashboard error = %v", err)
	}

	out, err := c.run("logout")
	if err != nil {
		t.Fatalf("logout error = %v", err)
	}
	if !strings.Contains(out, "Logged out") {
		t.Errorf("logout output:\n%s", out)
	}
	if n := c.backend.Count("/dashboard/logout"); n != 1 {
		t.Errorf("remote logout called %d times, want 1", n)
	}
	if _, err := os.Stat(filepath.Join(c.dir, "cache", "snapshots.yaml")); !os.IsNotExist(err) {
		t.Errorf("logout should clear the snapshot cache, stat err = %v", err)
	}

	if _, err := c.run("members", "list"); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("members list after logout error = %v", err)
	}
}
