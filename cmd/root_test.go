package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		contains string
	}{
		{
			name:     "version flag",
			args:     []string{"--version"},
			contains: "commit:",
		},
		{
			name:     "help flag",
			args:     []string{"--help"},
			contains: "orgdash login",
		},
		{
			name:    "unknown command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetCommandState()
			rootCmd.SetArgs(tt.args)
			var stdout, stderr bytes.Buffer
			rootCmd.SetOut(&stdout)
			rootCmd.SetErr(&stderr)

			err := rootCmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.contains != "" && !strings.Contains(stdout.String(), tt.contains) {
				t.Errorf("output missing %q:\n%s", tt.contains, stdout.String())
			}
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"login", "logout", "status", "dashboard", "members", "databases", "invitations", "costs", "export"}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("subcommand %q is not registered", name)
		}
	}
}

func TestParseRegions(t *testing.T) {
	regions, err := parseRegions([]string{"members", " costs-per-user "})
	if err != nil {
		t.Fatalf("parseRegions() error = %v", err)
	}
	if len(regions) != 2 || regions[0] != "members" || regions[1] != "costs-per-user" {
		t.Errorf("parseRegions() = %v", regions)
	}

	if _, err := parseRegions([]string{"payroll"}); err == nil {
		t.Error("parseRegions() should reject an unknown region")
	} else if !strings.Contains(err.Error(), "overview") {
		t.Errorf("error should list the available regions, got %v", err)
	}
}
