package cli

import (
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/cmk/cmd/cmk/internal/session"
)

var envFlags struct {
	buildDir string
	target   string
	buildEnv bool
	json     bool
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the variables set by .cmk.toml",
	Long: `Prints each variable the configuration touches with its final
value, as cmk would pass it to the program being run (or to the build
with --build-env).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		return s.PrintEnv(cmd.Context(), session.EnvOptions{
			BuildDir: envFlags.buildDir,
			Target:   envFlags.target,
			Build:    envFlags.buildEnv,
			JSON:     envFlags.json,
		})
	},
}

func init() {
	envCmd.Flags().StringVarP(&envFlags.buildDir, "build", "b", "",
		"Build directory (default: discovered)")
	envCmd.Flags().StringVarP(&envFlags.target, "target", "t", "",
		"Include the env.run.<target> layer")
	envCmd.Flags().BoolVar(&envFlags.buildEnv, "build-env", false,
		"Print the build environment instead of the run environment")
	envCmd.Flags().BoolVar(&envFlags.json, "json", false,
		"Print a JSON object")

	rootCmd.AddCommand(envCmd)
}
