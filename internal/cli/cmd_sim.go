package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/rcliao/timeline/internal/timeline"
)

func newSimCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Control the simulated clock",
		Long: `Control the simulated clock of the current project.

The whole project plays in simulation.period of real time (24h by default).
A started simulation keeps running between commands: status reads the clock
from the wall time elapsed since it was started, and it stops by itself on
the last day.`,
	}

	frameCmd := func(use, short string, args cobra.PositionalArgs, run func(projectID string, args []string) (timeline.Frame, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, args []string) error {
				project, err := a.project()
				if err != nil {
					return err
				}
				frame, err := run(project.ID, args)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), frame, func(w io.Writer) {
					if cmd.Name() == "status" {
						printFrame(w, frame)
						return
					}
					fmt.Fprintln(w, frameLine(frame))
				})
			},
		}
	}

	cmd.AddCommand(frameCmd("start", "Start or resume the clock", cobra.NoArgs,
		func(projectID string, _ []string) (timeline.Frame, error) {
			return a.simulations.Start(projectID)
		}))
	cmd.AddCommand(frameCmd("stop", "Pause the clock at the current day", cobra.NoArgs,
		func(projectID string, _ []string) (timeline.Frame, error) {
			return a.simulations.Stop(projectID)
		}))
	cmd.AddCommand(frameCmd("reset", "Stop the clock and go back to day 0", cobra.NoArgs,
		func(projectID string, _ []string) (timeline.Frame, error) {
			return a.simulations.Reset(projectID)
		}))
	cmd.AddCommand(frameCmd("status", "Show the current day and every task's progress", cobra.NoArgs,
		func(projectID string, _ []string) (timeline.Frame, error) {
			return a.simulations.Status(projectID)
		}))
	cmd.AddCommand(frameCmd("seek <day>", "Jump to a day (clamped to the project)", cobra.ExactArgs(1),
		func(projectID string, args []string) (timeline.Frame, error) {
			day, err := strconv.ParseFloat(args[0], 64)
			if err != nil || math.IsNaN(day) {
				return timeline.Frame{}, fmt.Errorf("day must be a number, got %q", args[0])
			}
			return a.simulations.Seek(projectID, day)
		}))
	return cmd
}

func newPlayCmd(a *app) *cobra.Command {
	var from float64

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run the clock in the foreground until the last day or Ctrl-C",
		Long: `Run the clock in the foreground, redrawing every simulation.tick_interval.
On a terminal the progress line is redrawn in place; otherwise a line is
printed for every new day. Ctrl-C pauses the simulation where it is.

Examples:
  timeline play
  timeline play --from 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.project()
			if err != nil {
				return err
			}
			seek := -1.0
			if cmd.Flags().Changed("from") {
				seek = from
			}
			out := cmd.OutOrStdout()
			return a.play(cmd.Context(), out, project.ID, seek, isTerminal(out))
		},
	}

	cmd.Flags().Float64Var(&from, "from", 0, "start playing from this day")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// play owns the simulator for the whole run: ticks and the final stop happen
// on this goroutine only. A negative seek keeps the stored day.
func (a *app) play(ctx context.Context, w io.Writer, projectID string, seek float64, interactive bool) error {
	pb, err := a.simulations.Load(projectID)
	if err != nil {
		return err
	}
	sim := pb.Simulator
	if seek >= 0 {
		sim.Seek(seek, a.now())
	}
	if err := sim.Start(a.now()); err != nil {
		return err
	}
	if err := a.simulations.Save(projectID, sim); err != nil {
		return err
	}
	a.logger.Debug("playing", "project", projectID, "day", sim.CurrentDay(), "tick", a.cfg.Simulation.TickInterval)

	lastDay := -1
	render := func() {
		frame := pb.Frame()
		if interactive {
			fmt.Fprintf(w, "\r\033[K%s", frameLine(frame))
			return
		}
		if day := int(frame.Day); day != lastDay || frame.State != timeline.Running {
			lastDay = day
			fmt.Fprintln(w, frameLine(frame))
		}
	}
	finish := func(msg string) error {
		if interactive {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, msg+"\n", sim.CurrentDay())
		return a.simulations.Save(projectID, sim)
	}

	ticker := time.NewTicker(a.cfg.Simulation.TickInterval)
	defer ticker.Stop()

	render()
	for {
		select {
		case <-ctx.Done():
			sim.Tick(a.now())
			sim.Stop()
			return finish("⏸  Paused at day %.1f")
		case <-ticker.C:
			sim.Tick(a.now())
			if sim.State() != timeline.Running {
				render()
				return finish("🏁 Finished on day %.0f")
			}
			render()
		}
	}
}
