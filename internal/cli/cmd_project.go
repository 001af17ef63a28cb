package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/service"
)

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects",
	}
	cmd.AddCommand(newProjectCreateCmd(a))
	cmd.AddCommand(newProjectListCmd(a))
	cmd.AddCommand(newProjectUseCmd(a))
	cmd.AddCommand(newProjectRenameCmd(a))
	cmd.AddCommand(newProjectShowCmd(a))
	return cmd
}

type createdProject struct {
	Project *domain.Project `json:"project"`
	Tasks   []*domain.Task  `json:"tasks,omitempty"`
}

func newProjectCreateCmd(a *app) *cobra.Command {
	var description, template string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Long: `Create a project. The first project becomes the current one.

Templates: ` + strings.Join(domain.TemplateNames(), ", ") + `

Examples:
  timeline project create "Kitchen"
  timeline project create "Flat" --template renovation -d "Second floor"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// an unknown template must not leave an empty project behind
			if template != "" {
				if _, err := domain.Template(template); err != nil {
					return err
				}
			}

			project, err := a.projects.Create(args[0], description)
			if err != nil {
				return err
			}
			result := createdProject{Project: project}
			if template != "" {
				if result.Tasks, err = a.tasks.ApplyTemplate(project.ID, template); err != nil {
					return err
				}
			}

			return a.emit(cmd.OutOrStdout(), result, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Created project %s (%s)\n", project.Name, project.ID)
				if len(result.Tasks) > 0 {
					fmt.Fprintf(w, "   Added %d tasks from template %s\n", len(result.Tasks), template)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "project description")
	cmd.Flags().StringVarP(&template, "template", "t", "", "seed the project with a template's tasks")
	return cmd
}

func newProjectListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.projects.List()
			if err != nil {
				return err
			}
			var currentID string
			current, err := a.projects.GetCurrent()
			switch {
			case err == nil:
				currentID = current.ID
			case !errors.Is(err, domain.ErrNoCurrentProject):
				return err
			}

			return a.emit(cmd.OutOrStdout(), projects, func(w io.Writer) {
				if len(projects) == 0 {
					fmt.Fprintln(w, "No projects yet. Create one with: timeline project create <name>")
					return
				}
				tw := newTable(w)
				_, _ = fmt.Fprintln(tw, " \tID\tNAME\tDESCRIPTION")
				for _, p := range projects {
					marker := " "
					if p.ID == currentID {
						marker = "*"
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker, p.ID, p.Name, dashIfEmpty(p.Description))
				}
				_ = tw.Flush()
			})
		},
	}
}

func newProjectUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <project>",
		Short: "Set the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.projects.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := a.projects.SetCurrent(project.ID); err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), project, func(w io.Writer) {
				fmt.Fprintf(w, "Now using project %s (%s)\n", project.Name, project.ID)
			})
		},
	}
}

func newProjectRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name>",
		Short: "Rename the project (its timeline title)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.project()
			if err != nil {
				return err
			}
			old := project.Name
			if project, err = a.projects.Rename(project.ID, args[0]); err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), project, func(w io.Writer) {
				fmt.Fprintf(w, "Renamed %s to %s\n", old, project.Name)
			})
		},
	}
}

func newProjectShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"summary"},
		Short:   "Summarize the project: progress, critical path and recommendations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.project()
			if err != nil {
				return err
			}
			summary, err := a.summaries.GenerateProjectSummary(project.ID)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), summary, func(w io.Writer) {
				printSummary(w, summary)
			})
		},
	}
}

func printSummary(w io.Writer, s *service.ProjectSummary) {
	fmt.Fprintf(w, "%s (%s)\n", s.Project.Name, s.Project.ID)
	if s.Project.Description != "" {
		fmt.Fprintln(w, s.Project.Description)
	}
	fmt.Fprintln(w)

	ts := s.TaskSummary
	fmt.Fprintf(w, "Tasks:          %d (%d not started, %d in progress, %d completed)\n", ts.Total,
		ts.ByStatus[domain.StatusNotStarted], ts.ByStatus[domain.StatusInProgress], ts.ByStatus[domain.StatusCompleted])

	sc := s.Schedule
	fmt.Fprintf(w, "Total duration: %d days\n", sc.TotalDuration)
	fmt.Fprintf(w, "Simulation:     %s day %.1f, %.0f%% done, %d task(s) finished\n",
		stateIcon(sc.State), sc.CurrentDay, sc.Overall*100, sc.Finished)
	if len(sc.CriticalPath) > 0 {
		fmt.Fprintf(w, "Critical path:  %s\n", strings.Join(sc.CriticalPath, " → "))
	}
	for _, u := range sc.Unresolved {
		fmt.Fprintf(w, "⚠️  %v\n", u.Err())
	}

	if s.Insights != nil && len(s.Insights.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, r := range s.Insights.Recommendations {
			fmt.Fprintf(w, "  • %s\n", r)
		}
	}
}
