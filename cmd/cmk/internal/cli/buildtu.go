package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/cmk/cmd/cmk/internal/session"
)

var buildTUFlags struct {
	buildDir string
	watch    bool
	debounce int
}

var buildTUCmd = &cobra.Command{
	Use:     "build-tu [source]",
	Aliases: []string{"tu"},
	Short:   "Compile a single translation unit",
	Long: `Compiles one source file with the command recorded in
compile_commands.json, without running the build tool.

The source may be absolute, relative to the current directory or the
project root, or a unique path suffix. Without a source the selector
lists every translation unit.

With --watch the file is recompiled each time it is saved:

  $ cmk build-tu src/parser.cc --watch
  cmk: watching /path/to/project/src/parser.cc (ctrl-c to stop)
  [14:32:15] compiling /path/to/project/src/parser.cc
  [14:32:16] ✓ /path/to/project/src/parser.cc (812ms)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuildTU,
}

func init() {
	buildTUCmd.Flags().StringVarP(&buildTUFlags.buildDir, "build", "b", "",
		"Build directory (default: discovered)")
	buildTUCmd.Flags().BoolVarP(&buildTUFlags.watch, "watch", "w", false,
		"Recompile whenever the source changes")
	buildTUCmd.Flags().IntVar(&buildTUFlags.debounce, "debounce", 200,
		"Debounce window in milliseconds")

	rootCmd.AddCommand(buildTUCmd)
}

func runBuildTU(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	opts := session.BuildTUOptions{
		BuildDir: buildTUFlags.buildDir,
		Watch:    buildTUFlags.watch,
		Debounce: time.Duration(buildTUFlags.debounce) * time.Millisecond,
	}
	if len(args) > 0 {
		opts.Source = args[0]
	}
	return s.BuildTU(cmd.Context(), opts)
}
