package cli

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rcliao/timeline/internal/tui"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Open the interactive timeline viewer",
		Long: `Open the interactive timeline viewer.

Keys: space play/pause, r reset, j/k select, J/K move the selected task,
+/- change its duration, t toggle the dark theme, ? all keys, q quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.project()
			if err != nil {
				return err
			}
			return tui.Run(tui.Options{
				ProjectID:    project.ID,
				Simulations:  a.simulations,
				Tasks:        a.tasks,
				Preferences:  a.store,
				TickInterval: a.cfg.Simulation.TickInterval,
				Clock:        a.now,
				Logger:       a.logger,
			},
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
				tea.WithAltScreen(),
			)
		},
	}
}

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change display preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := a.store.GetPreferences()
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), prefs, func(w io.Writer) {
				fmt.Fprintf(w, "dark-mode: %s\n", onOff(prefs.DarkMode))
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "dark-mode [on|off]",
		Short:     "Show or set the viewer's dark theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := a.store.GetPreferences()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if prefs.DarkMode, err = parseOnOff(args[0]); err != nil {
					return err
				}
				if err := a.store.SavePreferences(prefs); err != nil {
					return err
				}
			}
			return a.emit(cmd.OutOrStdout(), prefs, func(w io.Writer) {
				fmt.Fprintf(w, "dark-mode: %s\n", onOff(prefs.DarkMode))
			})
		},
	})
	return cmd
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1", "dark":
		return true, nil
	case "off", "false", "no", "0", "light":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
