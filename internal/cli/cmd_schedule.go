package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/timeline/internal/service"
)

func newScheduleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Show every task's start day, the total duration and the critical path",
		Long: `Project the task graph: a task starts once all of its dependencies have
finished, tasks without dependencies start on day 0.

Tasks marked * are on the critical path: delaying any of them delays the
whole project.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.project()
			if err != nil {
				return err
			}
			tl, err := a.schedules.Project(project.ID)
			if err != nil {
				return err
			}
			view := tl.View()
			return a.emit(cmd.OutOrStdout(), view, func(w io.Writer) {
				printSchedule(w, view)
			})
		},
	}
}

func printSchedule(w io.Writer, view service.TimelineView) {
	fmt.Fprintf(w, "%s: %d day(s)\n\n", view.Project.Name, view.TotalDuration)
	if len(view.Tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}

	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, " \tID\tNAME\tDAYS\tSTART\tFINISH\tSLACK")
	for _, st := range view.Tasks {
		marker := " "
		if st.Critical {
			marker = "*"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			marker, st.ID, st.Name, st.Duration, optionalInt(st.Start), optionalInt(st.Finish), optionalInt(st.Slack))
	}
	_ = tw.Flush()

	if len(view.CriticalPath) > 0 {
		fmt.Fprintf(w, "\nCritical path: %s\n", strings.Join(view.CriticalPath, " → "))
	}
	for _, u := range view.Unresolved {
		fmt.Fprintf(w, "⚠️  %v\n", u.Err())
	}
}
