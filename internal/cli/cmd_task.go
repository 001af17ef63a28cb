package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/service"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage the tasks of the current project",
		Long: `Manage the tasks of the current project (or --project).

Tasks are referenced by id (task-3), by number (3) or by name (Painting).`,
	}
	cmd.AddCommand(newTaskAddCmd(a))
	cmd.AddCommand(newTaskListCmd(a))
	cmd.AddCommand(newTaskShowCmd(a))
	cmd.AddCommand(newTaskEditCmd(a))
	cmd.AddCommand(newTaskRemoveCmd(a))
	cmd.AddCommand(newTaskMoveCmd(a))
	cmd.AddCommand(newTaskSearchCmd(a))
	cmd.AddCommand(newTaskTemplateCmd(a))
	return cmd
}

// resolveDependencies turns task references into ids. A reference that
// matches no task is passed through unchanged so the missing-dependency
// policy decides what happens to it.
func (a *app) resolveDependencies(projectID string, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		task, err := a.tasks.Resolve(projectID, ref)
		switch {
		case err == nil:
			ids = append(ids, task.ID)
		case errors.Is(err, domain.ErrNotFound):
			ids = append(ids, ref)
		default:
			return nil, err
		}
	}
	return ids, nil
}

func (a *app) task(ref string) (*domain.Project, *domain.Task, error) {
	project, err := a.project()
	if err != nil {
		return nil, nil, err
	}
	task, err := a.tasks.Resolve(project.ID, ref)
	if err != nil {
		return nil, nil, err
	}
	return project, task, nil
}

func newTaskAddCmd(a *app) *cobra.Command {
	var (
		duration int
		after    []string
		category string
		status   string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task",
		Long: `Add a task to the project. Its id is allocated from the project counter.

Examples:
  timeline task add "Electricity" --duration 2
  timeline task add "Painting" -d 20 --after Plaster,Tiles --category painting`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.project()
			if err != nil {
				return err
			}

			in := service.TaskInput{Name: args[0], Duration: duration}
			if in.Dependencies, err = a.resolveDependencies(project.ID, after); err != nil {
				return err
			}
			if in.Category, err = domain.ParseCategory(category); err != nil {
				return err
			}
			if status != "" {
				if in.Status, err = domain.ParseTaskStatus(status); err != nil {
					return err
				}
			}

			task, err := a.tasks.Add(project.ID, in)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), task, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Added %s %s (%d day(s))\n", task.ID, task.Name, task.Duration)
			})
		},
	}

	cmd.Flags().IntVarP(&duration, "duration", "d", 1, "duration in days")
	cmd.Flags().StringSliceVarP(&after, "after", "a", nil, "tasks that must finish first")
	cmd.Flags().StringVarP(&category, "category", "c", "", "trade category")
	cmd.Flags().StringVarP(&status, "status", "s", "", "not-started, in-progress or completed")
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	var (
		status     string
		category   string
		byCategory bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks in display order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.project()
			if err != nil {
				return err
			}

			filter := domain.TaskFilter{ProjectID: &project.ID}
			if status != "" {
				s, err := domain.ParseTaskStatus(status)
				if err != nil {
					return err
				}
				filter.Status = &s
			}
			if category != "" {
				c, err := domain.ParseCategory(category)
				if err != nil {
					return err
				}
				filter.Category = &c
			}

			tasks, err := a.tasks.List(filter)
			if err != nil {
				return err
			}

			if byCategory {
				groups := domain.GroupByCategory(tasks)
				return a.emit(cmd.OutOrStdout(), groups, func(w io.Writer) {
					for i, g := range groups {
						if i > 0 {
							fmt.Fprintln(w)
						}
						name := string(g.Category)
						if name == "" {
							name = "Uncategorized"
						}
						fmt.Fprintf(w, "%s (%d)\n", name, len(g.Tasks))
						printTasks(w, g.Tasks)
					}
				})
			}
			return a.emit(cmd.OutOrStdout(), tasks, func(w io.Writer) {
				printTasks(w, tasks)
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "only tasks with this status")
	cmd.Flags().StringVarP(&category, "category", "c", "", "only tasks in this category")
	cmd.Flags().BoolVar(&byCategory, "by-category", false, "group tasks by category")
	return cmd
}

func newTaskShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task>",
		Short: "Show a task with its scheduled days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, task, err := a.task(args[0])
			if err != nil {
				return err
			}
			tl, err := a.schedules.Project(project.ID)
			if err != nil {
				return err
			}

			var scheduled service.ScheduledTask
			for _, st := range tl.View().Tasks {
				if st.ID == task.ID {
					scheduled = st
				}
			}
			if scheduled.Task == nil {
				return fmt.Errorf("task with ID %s %w", task.ID, domain.ErrNotFound)
			}

			return a.emit(cmd.OutOrStdout(), scheduled, func(w io.Writer) {
				fmt.Fprintf(w, "%s  %s\n", task.ID, task.Name)
				fmt.Fprintf(w, "Duration:  %d day(s)\n", task.Duration)
				fmt.Fprintf(w, "After:     %s\n", dashIfEmpty(strings.Join(task.Dependencies, ", ")))
				fmt.Fprintf(w, "Category:  %s\n", dashIfEmpty(string(task.Category)))
				fmt.Fprintf(w, "Status:    %s\n", task.Status)
				if scheduled.Start == nil {
					fmt.Fprintln(w, "Schedule:  unresolved (missing dependency)")
					return
				}
				fmt.Fprintf(w, "Schedule:  day %d to %d, slack %d", *scheduled.Start, *scheduled.Finish, *scheduled.Slack)
				if scheduled.Critical {
					fmt.Fprint(w, " (critical)")
				}
				fmt.Fprintln(w)
			})
		},
	}
}

func newTaskEditCmd(a *app) *cobra.Command {
	var (
		name       string
		duration   int
		after      []string
		clearAfter bool
		category   string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "edit <task>",
		Short: "Change a task",
		Long: `Change a task. Only the flags given are applied; the edit is rejected if
it would create a dependency cycle.

Examples:
  timeline task edit Painting --duration 15
  timeline task edit 4 --after 2,3
  timeline task edit Tiles --status "In Progress"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, task, err := a.task(args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			var upd domain.TaskUpdate
			if flags.Changed("name") {
				upd.Name = &name
			}
			if flags.Changed("duration") {
				upd.Duration = &duration
			}
			if flags.Changed("after") || clearAfter {
				deps, err := a.resolveDependencies(project.ID, after)
				if err != nil {
					return err
				}
				upd.Dependencies = &deps
			}
			if flags.Changed("category") {
				c, err := domain.ParseCategory(category)
				if err != nil {
					return err
				}
				upd.Category = &c
			}
			if flags.Changed("status") {
				s, err := domain.ParseTaskStatus(status)
				if err != nil {
					return err
				}
				upd.Status = &s
			}
			if upd.IsEmpty() {
				return errors.New("nothing to change: pass --name, --duration, --after, --category or --status")
			}

			updated, err := a.tasks.Update(project.ID, task.ID, upd)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), updated, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Updated %s %s\n", updated.ID, updated.Name)
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "new duration in days")
	cmd.Flags().StringSliceVarP(&after, "after", "a", nil, "replace the dependencies")
	cmd.Flags().BoolVar(&clearAfter, "clear-after", false, "remove all dependencies")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category")
	cmd.Flags().StringVarP(&status, "status", "s", "", "new status")
	return cmd
}

func newTaskRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task>",
		Aliases: []string{"remove"},
		Short:   "Remove a task",
		Long: `Remove a task. What happens to tasks that depend on it follows the
schedule.removal setting: reject refuses, orphan leaves them pointing at the
removed task, detach strips the dependency.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, task, err := a.task(args[0])
			if err != nil {
				return err
			}
			result, err := a.tasks.Remove(project.ID, task.ID)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), result, func(w io.Writer) {
				fmt.Fprintf(w, "🗑️  Removed %s %s\n", result.Removed.ID, result.Removed.Name)
				if len(result.Detached) > 0 {
					fmt.Fprintf(w, "   Detached: %s\n", strings.Join(result.Detached, ", "))
				}
				if len(result.Orphaned) > 0 {
					fmt.Fprintf(w, "   ⚠️  Left without a start day: %s\n", strings.Join(result.Orphaned, ", "))
				}
			})
		},
	}
}

func newTaskMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <task> <position>",
		Short: "Move a task to a position in display order (1 is first)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[1])
			if err != nil || position < 1 {
				return fmt.Errorf("position must be a number from 1, got %q", args[1])
			}
			project, task, err := a.task(args[0])
			if err != nil {
				return err
			}
			tasks, err := a.tasks.Move(project.ID, task.ID, position-1)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), tasks, func(w io.Writer) {
				printTasks(w, tasks)
			})
		},
	}
}

func newTaskSearchCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search tasks by name, id or category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.project()
			if err != nil {
				return err
			}
			results, err := a.tasks.Search(project.ID, args[0], limit)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), results, func(w io.Writer) {
				if len(results) == 0 {
					fmt.Fprintf(w, "No tasks match %q.\n", args[0])
					return
				}
				tw := newTable(w)
				_, _ = fmt.Fprintln(tw, "ID\tNAME\tMATCH\tSCORE")
				for _, r := range results {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", r.Task.ID, r.Task.Name, r.MatchType, r.Score)
				}
				_ = tw.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "maximum number of results")
	return cmd
}

func newTaskTemplateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "template <name>",
		Short: "Append a template's tasks (" + strings.Join(domain.TemplateNames(), ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.project()
			if err != nil {
				return err
			}
			tasks, err := a.tasks.ApplyTemplate(project.ID, args[0])
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), tasks, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Added %d tasks from template %s\n", len(tasks), args[0])
			})
		},
	}
}
