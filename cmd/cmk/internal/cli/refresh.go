package cli

import (
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:     "refresh [build]",
	Aliases: []string{"ref"},
	Short:   "Re-run cmake for a build directory",
	Long: `Re-runs cmake -S <root> -B <build> with the build environment,
so that new sources and targets are picked up.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		var dir string
		if len(args) > 0 {
			dir = args[0]
		}
		return s.Refresh(cmd.Context(), dir)
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
