package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/cmk/cmd/cmk/internal/runner"
	"github.com/albertocavalcante/cmk/pkg/cmkerr"
)

// TestNoFlagConflicts verifies that all subcommands can merge their flags
// with the persistent root flags without shorthand conflicts.
func TestNoFlagConflicts(t *testing.T) {
	root := RootCmd()
	if root == nil {
		t.Fatal("RootCmd() returned nil")
	}

	subcommands := root.Commands()
	if len(subcommands) == 0 {
		t.Fatal("expected at least one subcommand")
	}

	for _, cmd := range subcommands {
		t.Run(cmd.Name(), func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("flag conflict in %q command: %v", cmd.Name(), r)
				}
			}()
			_ = cmd.Flags()
			_ = cmd.InheritedFlags()
		})
	}
}

// TestGlobalVerbosityFlag verifies the global -v flag exists and is properly configured.
func TestGlobalVerbosityFlag(t *testing.T) {
	vFlag := RootCmd().PersistentFlags().Lookup("verbosity")
	if vFlag == nil {
		t.Fatal("expected persistent 'verbosity' flag on root command")
	}
	if vFlag.Shorthand != "v" {
		t.Errorf("expected verbosity flag shorthand to be 'v', got %q", vFlag.Shorthand)
	}
	if vFlag.DefValue != "1" {
		t.Errorf("verbosity default = %q, want 1", vFlag.DefValue)
	}
}

func findCommand(t *testing.T, name string) *cobra.Command {
	t.Helper()
	for _, cmd := range RootCmd().Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	t.Fatalf("subcommand %q not found", name)
	return nil
}

// TestSubcommandsExist verifies expected subcommands and their aliases are registered.
func TestSubcommandsExist(t *testing.T) {
	tests := []struct {
		name    string
		aliases []string
	}{
		{"version", nil},
		{"run", []string{"r"}},
		{"build", []string{"b"}},
		{"build-tu", []string{"tu"}},
		{"refresh", []string{"ref"}},
		{"env", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := findCommand(t, tt.name)
			if diff := cmp.Diff(tt.aliases, cmd.Aliases); diff != "" {
				t.Errorf("aliases mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestBuildDirFlag verifies every command that resolves a build directory
// accepts -b/--build.
func TestBuildDirFlag(t *testing.T) {
	for _, name := range []string{"run", "build", "build-tu", "env"} {
		t.Run(name, func(t *testing.T) {
			f := findCommand(t, name).Flags().Lookup("build")
			if f == nil {
				t.Fatal("missing --build flag")
			}
			if f.Shorthand != "b" {
				t.Errorf("--build shorthand = %q, want b", f.Shorthand)
			}
		})
	}
}

func TestSplitRunArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		dash       int
		flagTarget string
		wantTarget string
		wantArgs   []string
		wantErr    bool
	}{
		{name: "none", dash: -1},
		{name: "target only", args: []string{"app"}, dash: -1, wantTarget: "app"},
		{
			name:       "target and args",
			args:       []string{"app", "--port", "80"},
			dash:       1,
			wantTarget: "app",
			wantArgs:   []string{"--port", "80"},
		},
		{
			name:     "args without target",
			args:     []string{"-x"},
			dash:     0,
			wantArgs: []string{"-x"},
		},
		{
			name:       "flag target",
			args:       []string{"-x"},
			dash:       0,
			flagTarget: "tool",
			wantTarget: "tool",
			wantArgs:   []string{"-x"},
		},
		{name: "two targets", args: []string{"a", "b"}, dash: -1, wantErr: true},
		{name: "flag and positional", args: []string{"a"}, dash: -1, flagTarget: "b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, args, err := splitRunArgs(tt.args, tt.dash, tt.flagTarget)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitRunArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if target != tt.wantTarget {
				t.Errorf("target = %q, want %q", target, tt.wantTarget)
			}
			if diff := cmp.Diff(tt.wantArgs, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"subprocess", fmt.Errorf("build: %w", &runner.ExitError{Code: 3}), 3},
		{"resolution failure", cmkerr.New(cmkerr.NoProjectRoot, "/tmp", ""), 200},
		{"usage error", errors.New(`unknown command "frob" for "cmk"`), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := RootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	t.Cleanup(func() {
		root.SetOut(nil)
		root.SetArgs(nil)
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "cmk dev ") {
		t.Errorf("version output = %q", out.String())
	}
}
