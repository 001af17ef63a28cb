package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/timeline/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize timeline in the data directory",
		Long: `Create the data directory and write the default config.yaml into it.

Examples:
  timeline init
  timeline init --data-dir ~/plans --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Init(a.cfg.DataDir, force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ Initialized timeline in %s\n", cfg.DataDir)
			fmt.Fprintf(out, "   Config: %s\n", cfg.Path())
			fmt.Fprintln(out, "\nNext: timeline project create <name> [--template renovation]")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config")
	return cmd
}
