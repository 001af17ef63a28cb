package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/service"
)

// Plan is the portable YAML form of a project's timeline.
type Plan struct {
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Tasks       []PlanTask `yaml:"tasks" json:"tasks"`
}

type PlanTask struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Duration int      `yaml:"duration" json:"duration"`
	After    []string `yaml:"after,omitempty" json:"after,omitempty"`
	Category string   `yaml:"category,omitempty" json:"category,omitempty"`
	Status   string   `yaml:"status,omitempty" json:"status,omitempty"`
}

func planFrom(project *domain.Project, tasks []*domain.Task) Plan {
	plan := Plan{
		Title:       project.Name,
		Description: project.Description,
		Tasks:       make([]PlanTask, len(tasks)),
	}
	for i, t := range tasks {
		plan.Tasks[i] = PlanTask{
			ID:       t.ID,
			Name:     t.Name,
			Duration: t.Duration,
			After:    t.Dependencies,
			Category: string(t.Category),
			Status:   string(t.Status),
		}
	}
	return plan
}

// inputs converts the plan's tasks, keeping their ids.
func (p Plan) inputs() ([]service.TaskInput, error) {
	inputs := make([]service.TaskInput, len(p.Tasks))
	for i, pt := range p.Tasks {
		in := service.TaskInput{
			ID:           pt.ID,
			Name:         pt.Name,
			Duration:     pt.Duration,
			Dependencies: pt.After,
		}
		var err error
		if in.Category, err = domain.ParseCategory(pt.Category); err != nil {
			return nil, fmt.Errorf("task %d (%s): %w", i+1, pt.Name, err)
		}
		if pt.Status != "" {
			if in.Status, err = domain.ParseTaskStatus(pt.Status); err != nil {
				return nil, fmt.Errorf("task %d (%s): %w", i+1, pt.Name, err)
			}
		}
		inputs[i] = in
	}
	return inputs, nil
}

func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the project as a YAML plan",
		Long: `Write the project's title, description and tasks as a YAML plan that
'timeline import' reads back.

Examples:
  timeline export > kitchen.yaml
  timeline export -o kitchen.yaml --project Kitchen`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.project()
			if err != nil {
				return err
			}
			tasks, err := a.tasks.List(domain.TaskFilter{ProjectID: &project.ID})
			if err != nil {
				return err
			}
			plan := planFrom(project, tasks)
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), plan)
			}

			data, err := yaml.Marshal(plan)
			if err != nil {
				return fmt.Errorf("encode plan: %w", err)
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write plan: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d tasks to %s\n", len(tasks), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var (
		replace    bool
		newProject bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add the tasks of a YAML plan",
		Long: `Add the tasks of a YAML plan to the project. The whole plan is checked as
one edit: if any task is invalid or the graph has a cycle nothing is stored.

Use - to read the plan from stdin.

Examples:
  timeline import kitchen.yaml --new
  timeline import kitchen.yaml --replace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := readPlan(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			inputs, err := plan.inputs()
			if err != nil {
				return err
			}

			var project *domain.Project
			if newProject {
				if project, err = a.projects.Create(plan.Title, plan.Description); err != nil {
					return err
				}
			} else if project, err = a.project(); err != nil {
				return err
			}

			tasks, err := a.tasks.Import(project.ID, inputs, replace)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), tasks, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Imported %d tasks into %s (%s)\n", len(tasks), project.Name, project.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "drop the project's existing tasks first")
	cmd.Flags().BoolVar(&newProject, "new", false, "create a new project from the plan's title")
	return cmd
}

func readPlan(stdin io.Reader, path string) (*Plan, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if strings.TrimSpace(plan.Title) == "" {
		plan.Title = "Imported plan"
	}
	return &plan, nil
}
