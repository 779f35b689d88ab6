// Package cli implements the cmk command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/cmk/cmd/cmk/internal/runner"
	"github.com/albertocavalcante/cmk/cmd/cmk/internal/session"
	"github.com/albertocavalcante/cmk/internal/log"
	"github.com/albertocavalcante/cmk/pkg/cmkerr"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity int
	logFormat string
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cmk",
	Short: "Build, run and compile CMake/Ninja projects from anywhere in the tree",
	Long: `cmk finds the project root and its Ninja build directory, applies the
environment described in .cmk.toml, and dispatches cmake, the compiler
or the program being run.

Running cmk without a subcommand builds the default target.`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runBuild,
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cmk %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Global flags (persistent across all commands)
	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", log.FormatPlain,
		"Log format (plain, text, json)")

	// Hook to apply flags before command runs
	cobra.OnInitialize(initLogging)
}

// initLogging applies CLI flags to the logger.
// This runs after flags are parsed but before command execution.
func initLogging() {
	log.Init(log.Options{
		Verbosity: globalFlags.verbosity,
		Format:    globalFlags.logFormat,
	})
}

// newSession resolves the project for the running process.
func newSession() (*session.Session, error) {
	in, err := session.Host()
	if err != nil {
		return nil, err
	}
	return session.New(in)
}

// Execute runs the root command and exits with the resulting code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), runner.Signals...)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit code. A subprocess
// failure keeps its own code and has already reported itself.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := runner.ExitCode(err); ok {
		return code
	}
	log.Error(err.Error())
	return cmkerr.ExitCode(err)
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
