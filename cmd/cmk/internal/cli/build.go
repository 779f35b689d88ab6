package cli

import (
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/cmk/cmd/cmk/internal/session"
)

var buildFlags struct {
	buildDir    string
	jobs        int
	interactive bool
}

var buildCmd = &cobra.Command{
	Use:     "build [target]",
	Aliases: []string{"b"},
	Short:   "Build a target (default: all)",
	Long: `Builds a target of the project's Ninja build directory with
cmake --build, using the build environment from .cmk.toml.

The job count defaults to the number of CPUs minus one and can be set
with CMK_DEFAULT_JOBS or --jobs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildFlags.buildDir, "build", "b", "",
		"Build directory (default: discovered)")
	buildCmd.Flags().IntVarP(&buildFlags.jobs, "jobs", "j", 0,
		"Parallel jobs (default: CMK_DEFAULT_JOBS or CPUs-1)")
	buildCmd.Flags().BoolVarP(&buildFlags.interactive, "interactive", "i", false,
		"Choose the target interactively")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	opts := session.BuildOptions{
		BuildDir:    buildFlags.buildDir,
		Jobs:        buildFlags.jobs,
		Interactive: buildFlags.interactive,
	}
	if len(args) > 0 {
		opts.Target = args[0]
	}
	return s.Build(cmd.Context(), opts)
}
