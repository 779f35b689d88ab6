package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/cmk/cmd/cmk/internal/session"
)

var runFlags struct {
	buildDir string
	target   string
}

var runCmd = &cobra.Command{
	Use:     "run [target] [-- args...]",
	Aliases: []string{"r"},
	Short:   "Build an executable target and run it",
	Long: `Builds the target quietly, then runs its artifact with the run
environment from .cmk.toml (env, env.<platform>, env.run and
env.run.<target>). Arguments after -- are passed to the program.

A partial target name opens the selector with that name as the query.
The program's exit code becomes cmk's exit code.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.buildDir, "build", "b", "",
		"Build directory (default: discovered)")
	runCmd.Flags().StringVarP(&runFlags.target, "target", "t", "",
		"Target to run")

	rootCmd.AddCommand(runCmd)
}

// splitRunArgs separates the target from the arguments after "--".
func splitRunArgs(args []string, dash int, flagTarget string) (string, []string, error) {
	before, after := args, []string(nil)
	if dash >= 0 {
		before, after = args[:dash], args[dash:]
	}
	target := flagTarget
	switch {
	case len(before) > 1:
		return "", nil, fmt.Errorf("expected at most one target before --, got %d", len(before))
	case len(before) == 1 && target != "":
		return "", nil, fmt.Errorf("target given both as argument %q and --target %q", before[0], target)
	case len(before) == 1:
		target = before[0]
	}
	return target, after, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	target, forwarded, err := splitRunArgs(args, cmd.ArgsLenAtDash(), runFlags.target)
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	return s.Run(cmd.Context(), session.RunOptions{
		BuildDir: runFlags.buildDir,
		Target:   target,
		Args:     forwarded,
	})
}
